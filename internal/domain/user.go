package domain

// User is the account returned by the backend's whoami endpoint.
type User struct {
	ID                 string  `json:"id"`
	Email              string  `json:"email"`
	FullName           string  `json:"full_name"`
	Picture            string  `json:"picture,omitempty"`
	Disabled           bool    `json:"disabled"`
	SubscriptionTier   *string `json:"subscription_tier"`
	ActiveSubscription bool    `json:"active_subscription"`
}

func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
