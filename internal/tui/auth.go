package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Form messages.
const (
	msgMissingFields    = "Please provide both email and password"
	msgPasswordMismatch = "Passwords do not match"
	msgLoginFailed      = "Failed to login"
	msgRegisterFailed   = "Failed to create account"
)

// authForm is the sign-in and sign-up form.
type authForm struct {
	register   bool
	inputs     []textinput.Model
	focused    int
	submitting bool
	err        string
}

func newAuthForm(register bool) authForm {
	email := textinput.New()
	email.Placeholder = "Enter your email"
	email.Prompt = "Email     "
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "Enter your password"
	password.Prompt = "Password  "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	f := authForm{register: register, inputs: []textinput.Model{email, password}}

	if register {
		password.Placeholder = "Create a password"
		f.inputs[1] = password

		confirm := textinput.New()
		confirm.Placeholder = "Confirm your password"
		confirm.Prompt = "Confirm   "
		confirm.EchoMode = textinput.EchoPassword
		confirm.EchoCharacter = '•'
		f.inputs = append(f.inputs, confirm)
	}
	return f
}

func (f *authForm) focus(i int) tea.Cmd {
	f.inputs[f.focused].Blur()
	f.focused = (i + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focused].Focus()
}

func (f *authForm) last() bool {
	return f.focused == len(f.inputs)-1
}

func (f *authForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	return cmd
}

func (f *authForm) email() string {
	return strings.TrimSpace(f.inputs[0].Value())
}

func (f *authForm) password() string {
	return f.inputs[1].Value()
}

// validate checks the form before anything is sent.
func (f *authForm) validate() string {
	if f.email() == "" || f.password() == "" {
		return msgMissingFields
	}
	if f.register && f.inputs[2].Value() != f.password() {
		return msgPasswordMismatch
	}
	return ""
}

func (f *authForm) fallback() string {
	if f.register {
		return msgRegisterFailed
	}
	return msgLoginFailed
}
