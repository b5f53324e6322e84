package main

import "reachpay/internal/mailer"

type mailAlert struct {
	template string // "refund" or "review"
	orderRef string
	amount   string
	reason   string
}

// alertOperator emails the operator off the request path. Delivery failures
// are logged only; the triggering request has already been answered.
func (app *application) alertOperator(alert mailAlert) {
	go func() {
		templateFile := mailer.RefundAlertTemplate
		if alert.template == "review" {
			templateFile = mailer.ReviewAlertTemplate
		}

		data := map[string]string{
			"Username":  "operator",
			"OrderRef":  alert.orderRef,
			"Requested": alert.amount,
			"Reason":    alert.reason,
		}

		status, err := app.mailer.Send(templateFile, "operator", app.config.mail.operatorEmail, data)
		if err != nil {
			app.logger.Errorw("failed to send operator alert", "order_ref", alert.orderRef, "error", err)
			return
		}
		app.logger.Infow("operator alert sent", "order_ref", alert.orderRef, "status", status)
	}()
}
