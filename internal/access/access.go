// Package access enforces role and mode policy for classified actions.
package access

// Mode is an access mode, applied both globally (the bot's own mode) and
// per command.
type Mode string

const (
	// ModeSelf admits only the owner and the bot's own identity.
	ModeSelf Mode = "self"
	// ModePublic admits everyone except the bot talking to itself (unless
	// the bot is also the owner), which would loop.
	ModePublic Mode = "public"
)

// Valid reports whether m is a recognized mode.
func (m Mode) Valid() bool {
	return m == ModeSelf || m == ModePublic
}

// Roles resolves the privileged identities an authorization decision needs.
type Roles struct {
	Owner   string
	BotSelf string
}

// Allowed applies one access gate. Both the global gate and the per-command
// gate use the same rule; callers apply the global gate to every decision
// and the command gate to command decisions only, and both must pass.
func Allowed(sender string, roles Roles, mode Mode) bool {
	isOwner := sender != "" && sender == roles.Owner
	isSelf := sender != "" && sender == roles.BotSelf

	if mode == ModeSelf {
		return isOwner || isSelf
	}
	return !(isSelf && !isOwner)
}
