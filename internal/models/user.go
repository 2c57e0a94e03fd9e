package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account merepresentasikan tabel / collection 'users'.
// ID = uid dari identity provider (Firebase uid atau uid lokal).
type Account struct {
	ID          string    `gorm:"column:uid;primaryKey;size:128" json:"uid" firestore:"uid"`
	Email       string    `gorm:"size:191;index;not null" json:"email" firestore:"email"`
	DisplayName *string   `gorm:"size:100" json:"displayName" firestore:"displayName"`
	PhotoURL    *string   `gorm:"column:photo_url;size:255" json:"photoURL" firestore:"photoURL"`
	BannerURL   *string   `gorm:"column:banner_url;size:255" json:"bannerUrl" firestore:"bannerUrl"`
	Phone       *string   `gorm:"size:20" json:"phone" firestore:"phone"`
	Address     *string   `gorm:"type:text" json:"address" firestore:"address"`
	Points      int64     `gorm:"not null;default:0" json:"points" firestore:"points"`
	Role        string    `gorm:"size:10;not null;default:user" json:"role" firestore:"role"`
	FCMToken    *string   `gorm:"column:fcm_token;size:255" json:"-" firestore:"fcmToken"` // Rahasia, tidak dikirim ke frontend
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt"`
}

func (Account) TableName() string { return "users" }

func (a *Account) IsAdmin() bool { return a.Role == RoleAdmin }

// AccountUpdate: field nil artinya tidak diubah.
// Points sengaja tidak ada di sini, saldo hanya boleh lewat AdjustPoints.
type AccountUpdate struct {
	DisplayName *string
	PhotoURL    *string
	BannerURL   *string
	Phone       *string
	Address     *string
	Role        *string
	FCMToken    *string
}

// Fields mengubah update jadi map kolom gorm (key = nama kolom)
func (u AccountUpdate) Fields() map[string]interface{} {
	m := map[string]interface{}{}
	if u.DisplayName != nil {
		m["display_name"] = *u.DisplayName
	}
	if u.PhotoURL != nil {
		m["photo_url"] = *u.PhotoURL
	}
	if u.BannerURL != nil {
		m["banner_url"] = *u.BannerURL
	}
	if u.Phone != nil {
		m["phone"] = *u.Phone
	}
	if u.Address != nil {
		m["address"] = *u.Address
	}
	if u.Role != nil {
		m["role"] = *u.Role
	}
	if u.FCMToken != nil {
		m["fcm_token"] = *u.FCMToken
	}
	return m
}

// DocFields sama seperti Fields tapi pakai nama field Firestore
func (u AccountUpdate) DocFields() map[string]interface{} {
	m := map[string]interface{}{}
	if u.DisplayName != nil {
		m["displayName"] = *u.DisplayName
	}
	if u.PhotoURL != nil {
		m["photoURL"] = *u.PhotoURL
	}
	if u.BannerURL != nil {
		m["bannerUrl"] = *u.BannerURL
	}
	if u.Phone != nil {
		m["phone"] = *u.Phone
	}
	if u.Address != nil {
		m["address"] = *u.Address
	}
	if u.Role != nil {
		m["role"] = *u.Role
	}
	if u.FCMToken != nil {
		m["fcmToken"] = *u.FCMToken
	}
	return m
}

// Input untuk PATCH /api/auth/profile
type UpdateProfileInput struct {
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	FCMToken    *string `json:"fcmToken"`
}

// Input untuk POST /api/auth/profile (buat profil pertama kali)
type CreateProfileInput struct {
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

// Input admin ganti role
type UpdateRoleInput struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

// Input admin tambah / kurangi poin
type AdjustPointsInput struct {
	Delta int64 `json:"delta" binding:"required"`
}

// Struct untuk menangkap Input Register dari user (identity lokal)
type RegisterInput struct {
	DisplayName string `json:"displayName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
}

// Struct untuk menangkap Input Login
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FCMToken string `json:"fcmToken"`
}

// LocalCredential: password hash untuk identity provider lokal (hanya GORM)
type LocalCredential struct {
	UID          string    `gorm:"primaryKey;size:128" json:"uid"`
	Email        string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
