package http

import (
	"net/http"

	"expensekeeper/internal/preferences"
)

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Preferences.Get(r.Context())
	if err != nil {
		s.fail(w, r, "get_preferences", err)
		return
	}
	NewJSONResponse().Data(toPreferencesResponse(p)).Write(w)
}

// handleSavePreferences replaces every preference; omitted fields reset.
func (s *Server) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	saved, err := s.svc.Preferences.Save(r.Context(), preferences.Preferences{
		Name:             sanitizeInput(req.Name),
		Email:            sanitizeInput(req.Email),
		Currency:         req.Currency,
		Theme:            preferences.Theme(req.Theme),
		RemindersEnabled: req.RemindersEnabled,
		BiometricLock:    req.BiometricLock,
	})
	if err != nil {
		s.fail(w, r, "save_preferences", err)
		return
	}
	NewJSONResponse().Data(toPreferencesResponse(saved)).Write(w)
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	type currency struct {
		Code   string `json:"code"`
		Symbol string `json:"symbol"`
		Label  string `json:"label"`
	}
	out := make([]currency, 0, len(preferences.Currencies))
	for _, c := range preferences.Currencies {
		out = append(out, currency{Code: c.Code, Symbol: c.Symbol, Label: c.Label()})
	}
	NewJSONResponse().Data(map[string][]currency{"currencies": out}).Write(w)
}
