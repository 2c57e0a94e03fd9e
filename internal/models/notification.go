package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentNotification menyimpan setiap webhook Midtrans yang masuk (audit & debugging)
type PaymentNotification struct {
	ID                uint64         `gorm:"primaryKey" json:"id" firestore:"-"`
	OrderID           string         `gorm:"size:64;index;not null" json:"orderId" firestore:"orderId"`
	TransactionStatus string         `gorm:"size:30" json:"transactionStatus" firestore:"transactionStatus"`
	FraudStatus       string         `gorm:"size:30" json:"fraudStatus" firestore:"fraudStatus"`
	PaymentType       string         `gorm:"size:50" json:"paymentType" firestore:"paymentType"`
	Payload           datatypes.JSON `gorm:"type:json" json:"payload" firestore:"-"`
	SignatureValid    bool           `gorm:"default:false;index" json:"signatureValid" firestore:"signatureValid"`
	ProcessingError   string         `gorm:"type:text" json:"processingError" firestore:"processingError"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"createdAt" firestore:"createdAt"`
}
