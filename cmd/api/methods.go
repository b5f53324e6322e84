package main

import (
	"fmt"
	"net/http"
	"strconv"

	"reachpay/internal/currency"
)

// getPaymentMethodsHandler lists the methods available for a country. The
// currency defaults to the country's own when not given.
func (app *application) getPaymentMethodsHandler(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if len(country) != 2 {
		app.badRequestResponse(w, r, fmt.Errorf("a two-letter country code is required"))
		return
	}

	curr := r.URL.Query().Get("currency")
	if curr == "" {
		curr = currency.ForCountry(country)
	}
	if curr == "" {
		app.badRequestResponse(w, r, fmt.Errorf("no currency known for country %q", country))
		return
	}

	methods, err := app.gateway.PaymentMethods(r.Context(), country, curr)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, methods); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) getBadgeHandler(w http.ResponseWriter, r *http.Request) {
	curr := r.URL.Query().Get("currency")
	if curr == "" {
		app.badRequestResponse(w, r, fmt.Errorf("currency is required"))
		return
	}

	badge, err := app.gateway.Badge(r.Context(), curr, r.RemoteAddr)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, badge); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) getCardInfoHandler(w http.ResponseWriter, r *http.Request) {
	iin, err := strconv.Atoi(r.URL.Query().Get("iin"))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("a numeric iin is required"))
		return
	}

	info, err := app.gateway.CardInfo(r.Context(), iin)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, info); err != nil {
		app.internalServerError(w, r, err)
	}
}
