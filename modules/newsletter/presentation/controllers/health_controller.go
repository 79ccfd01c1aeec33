package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/newsletter/pkg/application"
)

type HealthController struct{}

func NewHealthController() application.Controller {
	return &HealthController{}
}

func (c *HealthController) Key() string {
	return "/health_check"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health_check", c.Check).Methods(http.MethodGet)
}

func (c *HealthController) Check(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
