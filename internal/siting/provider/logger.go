package provider

import (
	"log"
	"time"
)

// LogRequest logs an outbound API request.
func LogRequest(service, method, url string, params map[string]interface{}) {
	if len(params) > 0 {
		log.Printf("[%s] %s %s params=%v", service, method, url, params)
	} else {
		log.Printf("[%s] %s %s", service, method, url)
	}
}

// LogResponse logs an API response received.
func LogResponse(service string, statusCode int, duration time.Duration, resultCount int) {
	log.Printf("[%s] response status=%d duration=%dms results=%d",
		service, statusCode, duration.Milliseconds(), resultCount)
}

// LogError logs an error from an operation.
func LogError(service, operation string, err error) {
	log.Printf("[%s] %s error: %v", service, operation, err)
}

// LogStage logs a pipeline stage and how many records it produced.
func LogStage(stage string, count int, duration time.Duration) {
	log.Printf("[pipeline] %s produced %d records in %dms",
		stage, count, duration.Milliseconds())
}
