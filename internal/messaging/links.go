// Package messaging builds WhatsApp deep links and runs the app-or-web hand-off.
package messaging

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/go-querystring/query"
)

const (
	AppScheme   = "whatsapp://send"
	WebHost     = "https://wa.me/"
	DownloadURL = "https://www.whatsapp.com/download"
)

var mobileAgent = regexp.MustCompile(`(?i)iPhone|iPad|iPod|Android`)

// IsMobile reports whether the user agent is a phone or tablet that may have the app.
func IsMobile(userAgent string) bool {
	return mobileAgent.MatchString(userAgent)
}

// Digits strips everything but digits from a phone number, including the leading +.
func Digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type appQuery struct {
	Phone string `url:"phone"`
	Text  string `url:"text"`
}

type webQuery struct {
	Text string `url:"text"`
}

// Links is the pair of URIs that carry the same message body.
type Links struct {
	App string
	Web string
}

func BuildLinks(phone, message string) (Links, error) {
	digits := Digits(phone)

	app, err := query.Values(appQuery{Phone: digits, Text: message})
	if err != nil {
		return Links{}, err
	}
	web, err := query.Values(webQuery{Text: message})
	if err != nil {
		return Links{}, err
	}

	return Links{
		App: AppScheme + "?" + componentEncode(app),
		Web: WebHost + digits + "?" + componentEncode(web),
	}, nil
}

// componentEncode writes spaces as %20 rather than +. Some app handlers show + literally.
// A literal + in the message is already %2B.
func componentEncode(v url.Values) string {
	return strings.ReplaceAll(v.Encode(), "+", "%20")
}
