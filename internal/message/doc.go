// Package message manages the destinations of the Ayla message service.
package message
