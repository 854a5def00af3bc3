package main

import (
	"net/http"

	qrcode "github.com/skip2/go-qrcode"
)

const inviteQRSize = 256

// InviteURL is publicURL, or the request's own origin when unset
func InviteURL(publicURL string, r *http.Request) string {
	if publicURL != "" {
		return publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/"
}

// HandleInvite renders a QR code PNG pointing players at the arena
func HandleInvite(publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		png, err := qrcode.Encode(InviteURL(publicURL, r), qrcode.Medium, inviteQRSize)
		if err != nil {
			Log.Errorw("invite qr encode failed", "err", err)
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	}
}
