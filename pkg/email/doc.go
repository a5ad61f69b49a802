// Package email sends transactional emails through Postmark, or writes them to
// disk in development.
//
// New picks the implementation from Config: Postmark when a server token is set,
// DevSender otherwise. Every implementation validates SendEmailParams first and
// reports failures wrapped in ErrFailedToSendEmail.
//
//	sender, err := email.New(cfg)
//	html, err := templates.Render(ctx, templates.PaymentReceived(data))
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "user@example.com",
//		Subject:  "Payment received",
//		BodyHTML: html,
//		Tag:      "payment_received",
//	})
//
// The templates subpackage holds the billing notification bodies.
package email
