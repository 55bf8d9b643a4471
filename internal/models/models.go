package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Book is a catalog entry. Stock counts the copies the library owns minus the
// copies removed by confirmed borrows; how many can still be handed out is
// derived from the open-loan count, never stored.
type Book struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code   string    `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Title  string    `gorm:"size:255;not null" json:"title"`
	Author string    `gorm:"size:255;not null" json:"author"`
	Stock  int       `gorm:"not null;default:1" json:"stock"`
	Loans  []Loan    `gorm:"foreignKey:BookID" json:"-"`
}

// Member is a registered borrower. Penalty set implies PenaltyEndDate set; the
// reverse transient (flag still set after the end date passed) is cleared
// lazily on the member's next borrow attempt.
type Member struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Code           string     `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Name           string     `gorm:"size:255;not null" json:"name"`
	Penalty        bool       `gorm:"not null;default:false" json:"penalty"`
	PenaltyEndDate *time.Time `json:"penalty_end_date"`
	Loans          []Loan     `gorm:"foreignKey:MemberID" json:"-"`
}

// Loan links one member to one book. ReturnDate nil means the loan is open.
// After creation the only permitted mutation is the single nil-to-set
// transition of ReturnDate.
type Loan struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"book_id"`
	Book       Book       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"book"`
	MemberID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"member_id"`
	Member     Member     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"member"`
	BorrowDate time.Time  `gorm:"not null" json:"borrow_date"`
	ReturnDate *time.Time `gorm:"index" json:"return_date"`
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (l *Loan) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
