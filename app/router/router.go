// Package router holds the application's single current page and the
// transitions between pages. Navigation is modeled as a guarded state
// machine: any page can jump to the main sections, while the password
// reset view is only reachable when a recovery token is held.
package router

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/purenote/purenote/pkg/statemachine"
)

// Page identifies one of the application's views.
type Page string

const (
	PageHome           Page = "home"
	PageLogin          Page = "login"
	PageSignup         Page = "signup"
	PageProfile        Page = "profile"
	PageForgotPassword Page = "forgot-password"
	PageResetPassword  Page = "reset-password"
	PageReviews        Page = "reviews"
	PageDonations      Page = "donations"
	PageNotes          Page = "notes"
	PageContact        Page = "contact"
	PageMessageSent    Page = "message-sent"
)

// DonationStatus is the outcome reported back from the payment provider's
// redirect URL.
type DonationStatus string

const (
	DonationSuccess   DonationStatus = "success"
	DonationCancelled DonationStatus = "cancelled"
)

// Notifier receives informational notifications surfaced during startup URL
// inspection. It must not block.
type Notifier func(status DonationStatus)

// Events accepted by the underlying machine.
const (
	eventShowHome           = "show_home"
	eventShowLogin          = "show_login"
	eventShowSignup         = "show_signup"
	eventShowProfile        = "show_profile"
	eventShowForgotPassword = "show_forgot_password"
	eventShowResetPassword  = "show_reset_password"
	eventShowReviews        = "show_reviews"
	eventShowDonations      = "show_donations"
	eventShowNotes          = "show_notes"
	eventShowContact        = "show_contact"
	eventShowMessageSent    = "show_message_sent"
	eventSwitchToLogin      = "switch_to_login"
	eventSwitchToSignup     = "switch_to_signup"
	eventResetSuccess       = "reset_success"
)

// Router tracks the current page. The zero value is not usable; construct
// with New.
type Router struct {
	machine *statemachine.Machine

	mu         sync.RWMutex
	resetToken string

	notify Notifier
}

// Option configures the router.
type Option func(*Router)

// WithNotifier sets the sink for startup notifications. Without it,
// notifications are dropped.
func WithNotifier(n Notifier) Option {
	return func(r *Router) { r.notify = n }
}

// New creates a router positioned on the home page.
func New(opts ...Option) *Router {
	r := &Router{
		machine: statemachine.New(string(PageHome)),
		notify:  func(DonationStatus) {},
	}
	for _, opt := range opts {
		opt(r)
	}

	// The main sections are reachable from anywhere.
	anywhere := map[string]Page{
		eventShowHome:           PageHome,
		eventShowLogin:          PageLogin,
		eventShowSignup:         PageSignup,
		eventShowProfile:        PageProfile,
		eventShowForgotPassword: PageForgotPassword,
		eventShowReviews:        PageReviews,
		eventShowDonations:      PageDonations,
		eventShowNotes:          PageNotes,
		eventShowContact:        PageContact,
		eventShowMessageSent:    PageMessageSent,
	}
	for event, to := range anywhere {
		mustAdd(r.machine.AddTransition(statemachine.Any, string(to), event, nil, nil))
	}

	// Cross-links between the auth forms.
	mustAdd(r.machine.AddTransition(string(PageLogin), string(PageSignup), eventSwitchToSignup, nil, nil))
	mustAdd(r.machine.AddTransition(string(PageSignup), string(PageLogin), eventSwitchToLogin, nil, nil))
	mustAdd(r.machine.AddTransition(string(PageForgotPassword), string(PageLogin), eventSwitchToLogin, nil, nil))

	// The reset view requires a recovery token; without one the transition
	// is refused and the current page stands.
	mustAdd(r.machine.AddTransition(statemachine.Any, string(PageResetPassword), eventShowResetPassword,
		func(ctx context.Context, from string, data any) bool {
			token, ok := data.(string)
			return ok && token != ""
		},
		func(ctx context.Context, from, to string, data any) error {
			r.setResetToken(data.(string))
			return nil
		},
	))

	// Completing the reset sends the user to login and discards the token.
	mustAdd(r.machine.AddTransition(string(PageResetPassword), string(PageLogin), eventResetSuccess, nil,
		func(ctx context.Context, from, to string, data any) error {
			r.setResetToken("")
			return nil
		},
	))

	return r
}

func mustAdd(err error) {
	if err != nil {
		panic(err)
	}
}

// Current returns the page the router is on.
func (r *Router) Current() Page {
	return Page(r.machine.Current())
}

// ResetToken returns the held password-recovery token, empty when none.
func (r *Router) ResetToken() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resetToken
}

func (r *Router) setResetToken(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetToken = token
}

func (r *Router) fire(ctx context.Context, event string, data any) error {
	return r.machine.Fire(ctx, event, data)
}

func (r *Router) BackToHome(ctx context.Context) error { return r.fire(ctx, eventShowHome, nil) }

func (r *Router) ShowLogin(ctx context.Context) error  { return r.fire(ctx, eventShowLogin, nil) }
func (r *Router) ShowSignup(ctx context.Context) error { return r.fire(ctx, eventShowSignup, nil) }
func (r *Router) ShowProfile(ctx context.Context) error {
	return r.fire(ctx, eventShowProfile, nil)
}

func (r *Router) ShowForgotPassword(ctx context.Context) error {
	return r.fire(ctx, eventShowForgotPassword, nil)
}

func (r *Router) ShowReviews(ctx context.Context) error   { return r.fire(ctx, eventShowReviews, nil) }
func (r *Router) ShowDonations(ctx context.Context) error { return r.fire(ctx, eventShowDonations, nil) }
func (r *Router) ShowNotes(ctx context.Context) error     { return r.fire(ctx, eventShowNotes, nil) }
func (r *Router) ShowContact(ctx context.Context) error   { return r.fire(ctx, eventShowContact, nil) }

func (r *Router) ShowMessageSent(ctx context.Context) error {
	return r.fire(ctx, eventShowMessageSent, nil)
}

// SwitchToSignup moves from the login form to the signup form.
func (r *Router) SwitchToSignup(ctx context.Context) error {
	return r.fire(ctx, eventSwitchToSignup, nil)
}

// SwitchToLogin moves back to the login form from signup or forgot-password.
func (r *Router) SwitchToLogin(ctx context.Context) error {
	return r.fire(ctx, eventSwitchToLogin, nil)
}

// ShowResetPassword enters the password-update view. It is refused when
// token is empty; the current page is unchanged in that case.
func (r *Router) ShowResetPassword(ctx context.Context, token string) error {
	return r.fire(ctx, eventShowResetPassword, token)
}

// ResetSuccess leaves the password-update view for login after a completed
// password change, discarding the recovery token.
func (r *Router) ResetSuccess(ctx context.Context) error {
	return r.fire(ctx, eventResetSuccess, nil)
}

// InspectURL examines the startup URL once and returns the URL the caller
// should display, with consumed markers removed.
//
// A donation query parameter with value "success" or "cancelled" surfaces a
// notification and is stripped; the current page is untouched. A fragment
// carrying an access token with type "recovery" moves the router to the
// password-update view and is stripped. Because consumed markers are
// removed, inspecting the returned URL again is a no-op.
func (r *Router) InspectURL(ctx context.Context, u *url.URL) *url.URL {
	out := *u

	q := out.Query()
	if status := DonationStatus(q.Get("donation")); status == DonationSuccess || status == DonationCancelled {
		r.notify(status)
		q.Del("donation")
		out.RawQuery = q.Encode()
	}

	if frag, err := url.ParseQuery(strings.TrimPrefix(out.Fragment, "#")); err == nil {
		token := frag.Get("access_token")
		if token != "" && frag.Get("type") == "recovery" {
			if err := r.fire(ctx, eventShowResetPassword, token); err == nil {
				out.Fragment = ""
				out.RawFragment = ""
			}
		}
	}

	return &out
}
