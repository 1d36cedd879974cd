package stdio

import (
	"os/user"
)

// UserProvider names the local peer. The stdio transport carries no bearer
// token, so the subject attached to consent log records comes from here.
type UserProvider interface {
	CurrentUserID() (string, error)
}

// OSUserProvider resolves the subject from the operating system's current
// user: the username when available, else the uid.
type OSUserProvider struct{}

func (OSUserProvider) CurrentUserID() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	if u.Username != "" {
		return u.Username, nil
	}
	return u.Uid, nil
}

// StaticUser is a UserProvider returning a fixed subject.
type StaticUser string

func (s StaticUser) CurrentUserID() (string, error) { return string(s), nil }
