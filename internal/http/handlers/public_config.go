package handlers

import (
	"net/http"

	"github.com/diagnosis/studio16/internal/http/response"
	"github.com/diagnosis/studio16/pkg/config"
)

// publicConfig is what a bundled front end would carry in its VITE_* values. The admin
// password is part of it.
type publicConfig struct {
	AdminPass      string `json:"VITE_ADMIN_PASS"`
	AdminOTPLength int    `json:"VITE_ADMIN_OTP_LENGTH"`
	ExampleOTP     string `json:"VITE_WHATSAPP_EXAMPLE_OTP"`
	ExamplePass    string `json:"VITE_WHATSAPP_EXAMPLE_PASS"`
	OperatorPhone  string `json:"operatorPhone"`
	StudioPhone    string `json:"studioPhone"`
}

// PublicConfig serves GET /api/config.
func PublicConfig(cfg *config.Config) http.HandlerFunc {
	body := publicConfig{
		AdminPass:      cfg.Admin.Password,
		AdminOTPLength: cfg.Admin.OTPLength,
		ExampleOTP:     cfg.Admin.ExampleOTP,
		ExamplePass:    cfg.Admin.ExamplePass,
		OperatorPhone:  cfg.Messaging.OperatorPhone,
		StudioPhone:    cfg.Messaging.StudioPhone,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, body)
	}
}
