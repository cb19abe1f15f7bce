package api

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/logger"
)

var defaultLogger = logger.NewLogger("API")

type endpointLoggerFields struct {
	Method  string `json:"method"`
	Url     string `json:"url"`
	Profile string `json:"profile,omitempty"`
}

const RequestInfoFieldsKey = "request_info"

func makeRequestLogger(request *http.Request) zerolog.Logger {
	fields := endpointLoggerFields{
		Method:  request.Method,
		Url:     request.URL.String(),
		Profile: request.URL.Query().Get(ProfileParam),
	}
	return defaultLogger.
		With().Interface(RequestInfoFieldsKey, fields).Logger()
}
