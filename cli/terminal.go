package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jeremysolarz/invoices-with-card-element/models"
	"github.com/jeremysolarz/invoices-with-card-element/views"
)

// terminalForm is the checkout form in a terminal.
type terminalForm struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	name      string
	card      string
	waitAlert bool

	mu            sync.Mutex
	submitEnabled bool
}

func newTerminalForm(in io.Reader, out, errOut io.Writer, name, card string, waitAlert bool) *terminalForm {
	return &terminalForm{
		in:        bufio.NewReader(in),
		out:       out,
		errOut:    errOut,
		name:      name,
		card:      card,
		waitAlert: waitAlert,
	}
}

func (f *terminalForm) SetSubmitEnabled(enabled bool) {
	f.mu.Lock()
	f.submitEnabled = enabled
	f.mu.Unlock()
}

func (f *terminalForm) SubmitEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitEnabled
}

func (f *terminalForm) BillingName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.name
}

// promptName asks for the billing name unless one was given.
func (f *terminalForm) promptName() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.name != "" {
		return
	}
	fmt.Fprint(f.out, "Name on card: ")
	line, _ := f.in.ReadString('\n')
	f.name = strings.TrimSpace(line)
}

func (f *terminalForm) CardToken() string {
	return f.card
}

// Alert prints the message and, when waitAlert is set, blocks until Enter.
func (f *terminalForm) Alert(message string) {
	fmt.Fprintf(f.errOut, "ALERT: %s\n", message)
	if f.waitAlert {
		fmt.Fprint(f.errOut, "Press Enter to continue...")
		_, _ = f.in.ReadString('\n')
	}
}

// printMessage is the message log listener of the terminal.
func (f *terminalForm) printMessage(msg models.Message) {
	_ = views.WriteMessage(f.out, msg)
}
