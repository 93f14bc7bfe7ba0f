// Package forecast generates the data served by the weather and horoscope services:
// random daily weather, zodiac signs with their date ranges and moods, and the mapping
// from a calendar date to a day offset relative to today.
package forecast
