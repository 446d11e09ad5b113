package macro

// User is a member of the project team.
type User struct {
	src UserSource
}

// NewUser returns a User. It has no associations to wire.
func NewUser(src UserSource) *User {
	return &User{src: src}
}

// Login returns the login of the user.
func (u *User) Login() string {
	return u.src.Login()
}

// Name returns the full name of the user.
func (u *User) Name() string {
	return u.src.Name()
}

// Email returns the email address of the user.
func (u *User) Email() string {
	return u.src.Email()
}

// VersionControlUserName returns the user name in version control.
func (u *User) VersionControlUserName() string {
	return u.src.VersionControlUserName()
}
