package models

// Item is a lost or found post. Timestamp is milliseconds since the epoch and is
// assigned by the server when the item is pushed.
type Item struct {
	ID          string    `gorm:"primaryKey;size:26" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Number      string    `gorm:"size:64;not null" json:"number"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Photo       string    `gorm:"type:text;not null" json:"photo"`
	Timestamp   int64     `gorm:"index;not null" json:"timestamp"`
	Likes       int64     `gorm:"not null;default:0" json:"likes"`
	Comments    []Comment `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"-"`
}

// Comment is an append-only remark attached to an item.
type Comment struct {
	ID        string `gorm:"primaryKey;size:26" json:"id"`
	ItemID    string `gorm:"size:26;index;not null" json:"item_id"`
	Name      string `gorm:"size:255;not null" json:"name"`
	Text      string `gorm:"type:text;not null" json:"text"`
	Timestamp int64  `gorm:"index;not null" json:"timestamp"`
}
