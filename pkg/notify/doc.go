// Package notify delivers user-facing billing notifications.
//
// A Message carries a Kind (expiry_warning, expiry_occurred, payment_received),
// the recipient and string parameters. Senders deliver a message over a single
// channel; EmailSender renders the message with the templates in
// pkg/email/templates and hands it to an email.EmailSender (Postmark or the
// development file sender).
//
// Dispatcher wraps a Sender with fire-and-forget semantics: each message is sent
// on its own goroutine with its own timeout, failures are logged and swallowed,
// and Wait blocks until in-flight deliveries finish, which is what shutdown code
// and tests use.
//
//	d := notify.NewDispatcher(notify.NewEmailSender(mailer, notify.WithBaseURL(url)))
//	d.Dispatch(ctx, notify.Message{UserID: id, Email: addr, Kind: notify.KindPaymentReceived})
//	defer d.Wait()
package notify
