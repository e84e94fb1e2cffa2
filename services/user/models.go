package user

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RecoveryCodes is stored as a JSON array in a single column so the whole
// set is replaced or cleared in one row update.
type RecoveryCodes []string

func (c RecoveryCodes) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

func (c *RecoveryCodes) Scan(value any) error {
	if value == nil {
		*c = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported recovery codes column type %T", value)
	}
}

func (c RecoveryCodes) Contains(code string) bool {
	for _, candidate := range c {
		if candidate == code {
			return true
		}
	}
	return false
}

type User struct {
	ID          uint   `json:"id" gorm:"primarykey"`
	Name        string `json:"name" gorm:"size:50;not null"`
	Age         int    `json:"age" gorm:"not null"`
	Username    string `json:"username" gorm:"size:50;uniqueIndex;not null"`
	Email       string `json:"email" gorm:"size:100;uniqueIndex;not null"`
	Password    string `json:"-" gorm:"size:255;not null"`
	IsAdmin     bool   `json:"is_admin" gorm:"not null;default:false"`
	IsEnableOTP bool   `json:"is_enable_otp" gorm:"not null;default:false"`

	// OTPSecret being set means the OTP engine is provisioned; IsEnableOTP
	// only flips after the first successful code verification.
	OTPSecret   *string       `json:"-" gorm:"size:255"`
	OTPRecovery RecoveryCodes `json:"-" gorm:"type:text"`

	IsLoggedOut bool `json:"is_logged_out" gorm:"not null;default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PasswordReset holds at most one live reset ticket per user. A new
// forgot-password request overwrites the row; consuming it clears the secret.
type PasswordReset struct {
	ID     uint    `json:"id" gorm:"primarykey"`
	UserID uint    `json:"user_id" gorm:"uniqueIndex;not null"`
	Secret *string `json:"-" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Models lists everything this package persists, for automigration.
func Models() []any {
	return []any{&User{}, &PasswordReset{}}
}
