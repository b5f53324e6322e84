package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"reachpay/internal/reach"
	"reachpay/internal/store"
)

// notificationHandler receives asynchronous server-to-server events from the
// processor. Anything that fails signature verification is rejected; a
// verified event for an order we do not know is acknowledged so the processor
// stops retrying it.
func (app *application) notificationHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	body, err := reach.VerifyNotification(
		r.PostFormValue("request"),
		r.PostFormValue("signature"),
		app.config.reach.secret,
	)
	if err != nil {
		app.logger.Warnw("notification rejected", "remote", r.RemoteAddr, "error", err.Error())
		writeJSONError(w, http.StatusBadRequest, "signature verification failed")
		return
	}

	var event reach.Notification
	if err := json.Unmarshal(body, &event); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if event.OrderID == "" {
		writeJSONError(w, http.StatusBadRequest, "Missing OrderId")
		return
	}

	ctx := r.Context()
	order, err := app.store.Orders.GetByTransactionID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			app.logger.Infow("notification for unknown order", "transaction_id", event.OrderID)
			w.WriteHeader(http.StatusOK)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if event.Refunds != nil {
		app.applyRefundEvent(ctx, order, event)
	}

	app.applyReviewEvent(ctx, order, event)

	switch event.OrderState {
	case "Processed":
		if err := app.store.Orders.UpdateStatus(ctx, order.ID, "processing"); err != nil {
			app.internalServerError(w, r, err)
			return
		}
	case "ProcessingFailed", "Declined":
		if err := app.store.Orders.UpdateStatus(ctx, order.ID, "failed"); err != nil {
			app.internalServerError(w, r, err)
			return
		}
	case "Cancelled":
		if err := app.store.Orders.UpdateStatus(ctx, order.ID, "cancelled"); err != nil {
			app.internalServerError(w, r, err)
			return
		}
	}
	if event.OrderState != "" {
		app.addOrderNote(ctx, order.ID, reach.NoteForOrderState(event.OrderState, "Notification: "))
	}

	w.WriteHeader(http.StatusOK)
}

func (app *application) applyRefundEvent(ctx context.Context, order *store.Order, event reach.Notification) {
	switch event.Refunds.State {
	case "Succeeded":
		app.addOrderNote(ctx, order.ID, "Notification: a refund completed on the processor side.")
	case "Failed":
		app.addOrderNote(ctx, order.ID, "Notification: a refund failed on the processor side.")
		app.alertOperator(mailAlert{
			template: "refund",
			orderRef: order.OrderRef,
			amount:   "0",
			reason:   "processor reported a failed refund",
		})
	}
}

func (app *application) applyReviewEvent(ctx context.Context, order *store.Order, event reach.Notification) {
	switch {
	case event.UnderReview && !order.UnderReview:
		if err := app.store.Orders.SetUnderReview(ctx, order.ID, true); err != nil {
			app.logger.Errorw("failed to flag review", "order_id", order.ID, "error", err)
			return
		}
		app.addOrderNote(ctx, order.ID, "The payment is under fraud review. Fulfillment is on hold until the review clears.")
		app.alertOperator(mailAlert{template: "review", orderRef: order.OrderRef})
	case !event.UnderReview && order.UnderReview:
		if err := app.store.Orders.SetUnderReview(ctx, order.ID, false); err != nil {
			app.logger.Errorw("failed to clear review", "order_id", order.ID, "error", err)
			return
		}
		app.addOrderNote(ctx, order.ID, "The fraud review cleared.")
	}
}

// returnHandler receives the shopper's browser coming back from an external
// payment flow. The outcome travels in signed query fields; an unverifiable
// or unparsable return still answers 200 so the shopper sees a page rather
// than an error, but nothing in the order changes.
func (app *application) returnHandler(w http.ResponseWriter, r *http.Request) {
	body, err := reach.VerifyReturnQuery(r.URL.Query(), app.config.reach.secret)
	if err != nil {
		app.logger.Warnw("return rejected", "remote", r.RemoteAddr, "error", err.Error())
		writeJSON(w, http.StatusOK, map[string]string{"status": "unverified"})
		return
	}

	var event reach.ReturnEvent
	if err := json.Unmarshal(body, &event); err != nil {
		app.logger.Warnw("return unparsable", "error", err.Error())
		writeJSON(w, http.StatusOK, map[string]string{"status": "unparsable"})
		return
	}

	ctx := r.Context()
	order, err := app.store.Orders.GetByTransactionID(ctx, event.OrderID)
	if err != nil {
		app.logger.Warnw("return for unknown order", "transaction_id", event.OrderID)
		http.Redirect(w, r, app.config.frontendURL+"/checkout", http.StatusSeeOther)
		return
	}

	if event.Error != nil {
		app.addOrderNote(ctx, order.ID, "Return: payment failed with "+event.Error.Code)
		dest := app.config.frontendURL + "/checkout?payment_error=" + url.QueryEscape(event.Error.Code)
		http.Redirect(w, r, dest, http.StatusSeeOther)
		return
	}

	status := "on-hold"
	if event.Captured {
		status = "processing"
	}
	if event.UnderReview {
		status = "on-hold"
		if err := app.store.Orders.SetUnderReview(ctx, order.ID, true); err != nil {
			app.logger.Errorw("failed to flag review", "order_id", order.ID, "error", err)
		}
	}
	if err := app.store.Orders.UpdateStatus(ctx, order.ID, status); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.addOrderNote(ctx, order.ID, reach.NoteForOrderState(event.OrderState, "Return: "))

	http.Redirect(w, r, app.config.frontendURL+"/order-received/"+order.OrderRef, http.StatusSeeOther)
}
