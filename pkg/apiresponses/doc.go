// Package apiresponses provides standardized HTTP API error response
// helpers shared between the api and engine packages without import cycles.
package apiresponses
