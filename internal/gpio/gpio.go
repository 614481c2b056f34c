// Package gpio exercises the appliance's physical I/O lines: the LED the
// recorder blinks and the button that starts a recording. Access goes
// through small capability interfaces so the harness can run against fake
// lines in tests and against either privilege context in production.
package gpio

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"syscall"

	"github.com/warthog618/go-gpiocdev"

	"github.com/fieldbox/provisiond/internal/messages"
)

// Line is a claimed GPIO line. Claims are held for the minimum necessary
// window and must be released on every exit path.
type Line interface {
	SetValue(value int) error
	Value() (int, error)
	Close() error
}

// Opener claims lines under a particular privilege context.
type Opener interface {
	// Label names the privilege context for narration and error reports.
	Label() string
	OpenOutput(pin int, initial int) (Line, error)
	OpenInput(pin int) (Line, error)
}

// Chip opens lines on a GPIO character device under the current privileges.
type Chip struct {
	// Name is the gpiochip device name, e.g. "gpiochip0".
	Name string
}

// Label implements Opener.
func (c Chip) Label() string { return messages.GPIOContextCurrent }

// OpenOutput claims pin as an output driven to initial.
func (c Chip) OpenOutput(pin int, initial int) (Line, error) {
	line, err := gpiocdev.RequestLine(c.Name, pin,
		gpiocdev.AsOutput(initial),
		gpiocdev.WithConsumer("provisiond"))
	if err != nil {
		return nil, fmt.Errorf(messages.GPIOClaimOutputFailedFmt, pin, c.Name, err)
	}
	return line, nil
}

// OpenInput claims pin as a pulled-up input: unpressed reads high, pressed
// reads low, matching the button wiring.
func (c Chip) OpenInput(pin int) (Line, error) {
	line, err := gpiocdev.RequestLine(c.Name, pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithConsumer("provisiond"))
	if err != nil {
		return nil, fmt.Errorf(messages.GPIOClaimInputFailedFmt, pin, c.Name, err)
	}
	return line, nil
}

// DropPriv wraps another Opener and claims lines with the effective UID/GID
// of the service account, in-process. This is the second context of the
// dual-context retry: it proves the unprivileged recorder itself will be
// able to claim the lines.
type DropPriv struct {
	Base    Opener
	Account string
	UID     int
	GID     int
}

// NewDropPriv resolves account and returns a privilege-dropping opener.
func NewDropPriv(base Opener, account string) (*DropPriv, error) {
	u, err := user.Lookup(account)
	if err != nil {
		return nil, fmt.Errorf(messages.GPIOAccountLookupFailedFmt, account, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return nil, fmt.Errorf(messages.GPIOAccountLookupFailedFmt, account, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return nil, fmt.Errorf(messages.GPIOAccountLookupFailedFmt, account, err)
	}
	return &DropPriv{Base: base, Account: account, UID: uid, GID: gid}, nil
}

// Label implements Opener.
func (d *DropPriv) Label() string {
	return fmt.Sprintf(messages.GPIOContextAccountFmt, d.Account)
}

// OpenOutput implements Opener.
func (d *DropPriv) OpenOutput(pin int, initial int) (Line, error) {
	var line Line
	err := d.asAccount(func() error {
		var openErr error
		line, openErr = d.Base.OpenOutput(pin, initial)
		return openErr
	})
	return line, err
}

// OpenInput implements Opener.
func (d *DropPriv) OpenInput(pin int) (Line, error) {
	var line Line
	err := d.asAccount(func() error {
		var openErr error
		line, openErr = d.Base.OpenInput(pin)
		return openErr
	})
	return line, err
}

// asAccount runs fn with effective IDs switched to the service account and
// restores them afterwards. Only the claim runs under the dropped identity;
// reads and writes on an already claimed line are not permission-checked.
// syscall.Seteuid/Setegid apply to all threads of the process.
func (d *DropPriv) asAccount(fn func() error) error {
	savedUID := os.Geteuid()
	savedGID := os.Getegid()
	if err := syscall.Setegid(d.GID); err != nil {
		return fmt.Errorf(messages.GPIODropPrivFailedFmt, d.Account, err)
	}
	if err := syscall.Seteuid(d.UID); err != nil {
		_ = syscall.Setegid(savedGID)
		return fmt.Errorf(messages.GPIODropPrivFailedFmt, d.Account, err)
	}
	defer func() {
		_ = syscall.Seteuid(savedUID)
		_ = syscall.Setegid(savedGID)
	}()
	return fn()
}
