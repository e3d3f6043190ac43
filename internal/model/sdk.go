package model

type SDKClient struct {
	ID      uint64 `gorm:"primaryKey"`
	AppID   string `gorm:"size:64;not null"`
	APIKey  string `gorm:"size:64;not null"`
	Project string `gorm:"size:64;default:default"`
	Status  int    `gorm:"default:1"`
}
