package mailer

import "embed"

const (
	FromName            = "ReachPay"
	maxRetries          = 3
	RefundAlertTemplate = "refund_alert.tmpl"
	ReviewAlertTemplate = "review_alert.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) (int, error)
}
