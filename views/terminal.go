package views

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeremysolarz/invoices-with-card-element/models"
)

// FormatMessage renders a message as one terminal line, links as "id <url>".
func FormatMessage(msg models.Message) string {
	var b strings.Builder
	b.WriteString("> ")
	for _, s := range msg.Segments {
		b.WriteString(s.Text)
		if s.IsLink() {
			fmt.Fprintf(&b, " <%s>", s.URL)
		}
	}
	return b.String()
}

// WriteMessage writes msg followed by a newline.
func WriteMessage(w io.Writer, msg models.Message) error {
	_, err := fmt.Fprintln(w, FormatMessage(msg))
	return err
}
