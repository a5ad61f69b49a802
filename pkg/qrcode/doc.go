// Package qrcode renders payment links as PNG QR codes using skip2/go-qrcode.
//
//	png, err := qrcode.PaymentLink(order.PaymentLink, 320)
//
// Sizes are clamped to [MinSize, MaxSize]. DataURI embeds a PNG inline.
package qrcode
