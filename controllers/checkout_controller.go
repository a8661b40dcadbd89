package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/jeremysolarz/invoices-with-card-element/errors"
	"github.com/jeremysolarz/invoices-with-card-element/models"
	"github.com/jeremysolarz/invoices-with-card-element/services"
	"github.com/jeremysolarz/invoices-with-card-element/views"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// webForm is the server-side state of one rendered checkout form.
type webForm struct {
	mu            sync.Mutex
	submitEnabled bool
	billingName   string
	cardToken     string
	alert         string
}

func (f *webForm) SetSubmitEnabled(enabled bool) {
	f.mu.Lock()
	f.submitEnabled = enabled
	f.mu.Unlock()
}

func (f *webForm) BillingName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.billingName
}

func (f *webForm) CardToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cardToken
}

func (f *webForm) Alert(message string) {
	f.mu.Lock()
	f.alert = message
	f.mu.Unlock()
}

func (f *webForm) fill(name, card string) {
	f.mu.Lock()
	f.billingName = name
	f.cardToken = card
	f.mu.Unlock()
}

// snapshot returns the form state for rendering and consumes a pending alert.
func (f *webForm) snapshot() (enabled bool, name, card, alert string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, f.alert = f.alert, ""
	return f.submitEnabled, f.billingName, f.cardToken, alert
}

type formSession struct {
	page     *services.CheckoutPage
	form     *webForm
	lastSeen time.Time
}

// CheckoutController serves checkout forms. Every form instance owns its own
// page: config, card, message log and submit flow.
type CheckoutController struct {
	deps          services.PageDeps
	submitTimeout time.Duration
	sessionTTL    time.Duration
	logger        *zap.Logger
	now           func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*formSession
}

func NewCheckoutController(deps services.PageDeps, submitTimeout, sessionTTL time.Duration, logger *zap.Logger) *CheckoutController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutController{
		deps:          deps,
		submitTimeout: submitTimeout,
		sessionTTL:    sessionTTL,
		logger:        logger,
		now:           time.Now,
		sessions:      make(map[uuid.UUID]*formSession),
	}
}

// NewForm loads a fresh checkout page and redirects to it.
func (cc *CheckoutController) NewForm(c *gin.Context) {
	form := &webForm{cardToken: views.TestCards[0].Token}
	page, err := services.LoadCheckoutPage(c.Request.Context(), cc.deps, form)
	if err != nil {
		cc.logger.Error("Failed to load checkout page", zap.Error(err))
		_ = c.Error(apperrors.ErrCheckoutServerDown.Wrap(err))
		return
	}

	cc.mu.Lock()
	cc.sessions[page.ID] = &formSession{page: page, form: form, lastSeen: cc.now()}
	cc.mu.Unlock()

	c.Redirect(http.StatusSeeOther, "/forms/"+page.ID.String())
}

// ShowForm renders the checkout page.
func (cc *CheckoutController) ShowForm(c *gin.Context) {
	sess, ok := cc.session(c)
	if !ok {
		return
	}

	enabled, name, card, alert := sess.form.snapshot()
	data := views.CheckoutPageData{
		FormID:          sess.page.ID.String(),
		BillingName:     name,
		SelectedCard:    card,
		SubmitEnabled:   enabled,
		MessagesVisible: sess.page.Messages.Visible(),
		Messages:        sess.page.Messages.Messages(),
		Alert:           alert,
	}

	var buf bytes.Buffer
	if err := views.RenderCheckoutPage(&buf, data); err != nil {
		cc.logger.Error("Failed to render checkout page", zap.Error(err))
		_ = c.Error(apperrors.ErrInternalServer.Wrap(err))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

type submitRequest struct {
	Name string `form:"name"`
	Card string `form:"card" binding:"required"`
}

// SubmitForm runs one submission of the form and redirects back to it.
// A submit while another one is running is dropped.
func (cc *CheckoutController) SubmitForm(c *gin.Context) {
	sess, ok := cc.session(c)
	if !ok {
		return
	}

	var req submitRequest
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(apperrors.ErrBadRequest.Wrap(err))
		return
	}
	if !views.IsTestCard(req.Card) {
		_ = c.Error(apperrors.New(http.StatusBadRequest, "Unknown card", nil))
		return
	}
	sess.form.fill(req.Name, req.Card)

	// The submission must not be cut short by the browser going away once the
	// processor may already have been reached.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), cc.submitTimeout)
	defer cancel()

	outcome, err := sess.page.Flow.Submit(ctx)
	switch {
	case errors.Is(err, services.ErrSubmissionInFlight):
		cc.logger.Info("Duplicate submit dropped", zap.String("form_id", sess.page.ID.String()))
	case err != nil:
		_ = c.Error(apperrors.ErrInternalServer.Wrap(err))
		return
	default:
		cc.logger.Info("Checkout submission finished",
			zap.String("form_id", sess.page.ID.String()),
			zap.Stringer("outcome", outcome),
		)
	}

	c.Redirect(http.StatusSeeOther, "/forms/"+sess.page.ID.String())
}

type messagesResponse struct {
	FormID   string           `json:"form_id"`
	State    string           `json:"state"`
	Visible  bool             `json:"visible"`
	Messages []models.Message `json:"messages"`
}

// Messages returns the message log as structured JSON.
func (cc *CheckoutController) Messages(c *gin.Context) {
	sess, ok := cc.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, messagesResponse{
		FormID:   sess.page.ID.String(),
		State:    sess.page.Flow.State().String(),
		Visible:  sess.page.Messages.Visible(),
		Messages: sess.page.Messages.Messages(),
	})
}

func (cc *CheckoutController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "checkout-web"})
}

func (cc *CheckoutController) session(c *gin.Context) (*formSession, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.ErrFormNotFound)
		return nil, false
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	sess, ok := cc.sessions[id]
	if !ok {
		_ = c.Error(apperrors.ErrFormNotFound)
		return nil, false
	}
	sess.lastSeen = cc.now()
	return sess, true
}

// Sweep drops forms not seen for longer than the session TTL. A form whose
// submission is still running is kept.
func (cc *CheckoutController) Sweep() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	removed := 0
	now := cc.now()
	for id, sess := range cc.sessions {
		if now.Sub(sess.lastSeen) <= cc.sessionTTL || sess.page.Flow.State() == services.StateSubmitting {
			continue
		}
		delete(cc.sessions, id)
		removed++
	}
	if removed > 0 {
		cc.logger.Info("Expired checkout forms removed", zap.Int("count", removed))
	}
	return removed
}

// RunSweeper calls Sweep and the extra sweeps every interval until ctx ends.
func (cc *CheckoutController) RunSweeper(ctx context.Context, interval time.Duration, extra ...func() int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cc.Sweep()
			for _, fn := range extra {
				fn()
			}
		}
	}
}
