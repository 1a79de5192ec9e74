package session

// Role is a user's single role in the marketplace.
type Role string

const (
	RoleStudent Role = "student"
	RoleVendor  Role = "vendor"
	RoleRider   Role = "rider"
	RoleAdmin   Role = "admin"
)

// User is the normalized identity record.
type User struct {
	ID              int64  `json:"id"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Role            Role   `json:"role"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// AuthPayload is the backend's login/register response. Registration
// returns the same shape as login, so success handling is shared.
type AuthPayload struct {
	Token           string `json:"token"`
	UserID          int64  `json:"user_id"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Role            Role   `json:"role"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// user normalizes the payload into the client-side identity record.
func (p *AuthPayload) user() User {
	return User{
		ID:              p.UserID,
		Email:           p.Email,
		Phone:           p.Phone,
		Role:            p.Role,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		ProfileImageURL: p.ProfileImageURL,
	}
}

// RegisterProfile is the registration request body.
type RegisterProfile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	StudentID string `json:"student_id"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password"`
}

// userRecord is the /auth/me response. The backend has emitted both "id"
// and "user_id" over time, and both snake_case and camelCase name fields;
// normalize accepts either.
type userRecord struct {
	ID              int64  `json:"id"`
	UserID          int64  `json:"user_id"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Role            Role   `json:"role"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

func (r *userRecord) normalize() User {
	id := r.ID
	if id == 0 {
		id = r.UserID
	}
	return User{
		ID:              id,
		Email:           r.Email,
		Phone:           r.Phone,
		Role:            r.Role,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		ProfileImageURL: r.ProfileImageURL,
	}
}

// UserPatch is a local-only merge patch applied by UpdateUser. Nil fields
// are left untouched.
type UserPatch struct {
	Email           *string
	Phone           *string
	FirstName       *string
	LastName        *string
	ProfileImageURL *string
}

func (p UserPatch) apply(u User) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.ProfileImageURL != nil {
		u.ProfileImageURL = *p.ProfileImageURL
	}
	return u
}
