package repositories

import (
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"library-api/internal/models"
)

// Transactor demarcates a unit of work. *gorm.DB satisfies it directly; tests
// substitute the in-memory store, which serializes with a mutex instead.
type Transactor interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// Every repository method takes an optional transaction handle; nil falls back
// to the repository's base connection. Callers inside a Transactor callback
// pass the tx they were given so all reads and writes share its isolation.

type MemberRepository interface {
	FindByCode(db *gorm.DB, code string) (*models.Member, error)
	FindByCodeForUpdate(db *gorm.DB, code string) (*models.Member, error)
	FindByID(db *gorm.DB, id uuid.UUID) (*models.Member, error)
	List(db *gorm.DB) ([]models.Member, error)
	ListWithLoans(db *gorm.DB) ([]models.Member, error)
	Create(db *gorm.DB, member *models.Member) error
	Save(db *gorm.DB, member *models.Member) error
}

type BookRepository interface {
	FindByCode(db *gorm.DB, code string) (*models.Book, error)
	FindByCodeForUpdate(db *gorm.DB, code string) (*models.Book, error)
	FindByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	List(db *gorm.DB) ([]models.Book, error)
	Create(db *gorm.DB, book *models.Book) error
	Save(db *gorm.DB, book *models.Book) error
}

// LoanFilter selects loans by equality on member, book, and open/closed state.
// Nil fields are not constrained.
type LoanFilter struct {
	MemberID *uuid.UUID
	BookID   *uuid.UUID
	Open     *bool
}

type LoanRepository interface {
	CountWhere(db *gorm.DB, filter LoanFilter) (int64, error)
	FindOpenFor(db *gorm.DB, memberID, bookID uuid.UUID) (*models.Loan, error)
	List(db *gorm.DB) ([]models.Loan, error)
	ListOpen(db *gorm.DB, withRelations bool) ([]models.Loan, error)
	Create(db *gorm.DB, loan *models.Loan) error
	Save(db *gorm.DB, loan *models.Loan) error
}

// concrete implementations

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) FindByCode(db *gorm.DB, code string) (*models.Member, error) {
	if db == nil {
		db = r.db
	}
	var member models.Member
	if err := db.First(&member, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) FindByCodeForUpdate(db *gorm.DB, code string) (*models.Member, error) {
	if db == nil {
		db = r.db
	}
	var member models.Member
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&member, "code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) FindByID(db *gorm.DB, id uuid.UUID) (*models.Member, error) {
	if db == nil {
		db = r.db
	}
	var member models.Member
	if err := db.First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) List(db *gorm.DB) ([]models.Member, error) {
	if db == nil {
		db = r.db
	}
	var members []models.Member
	if err := db.Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) ListWithLoans(db *gorm.DB) ([]models.Member, error) {
	if db == nil {
		db = r.db
	}
	var members []models.Member
	err := db.
		Preload("Loans", func(db *gorm.DB) *gorm.DB {
			return db.Order("borrow_date ASC")
		}).
		Preload("Loans.Book").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) Create(db *gorm.DB, member *models.Member) error {
	if db == nil {
		db = r.db
	}
	return db.Create(member).Error
}

func (r *memberRepository) Save(db *gorm.DB, member *models.Member) error {
	if db == nil {
		db = r.db
	}
	return db.Save(member).Error
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) FindByCode(db *gorm.DB, code string) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) FindByCodeForUpdate(db *gorm.DB, code string) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, "code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) FindByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) List(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) Save(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Save(book).Error
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) CountWhere(db *gorm.DB, filter LoanFilter) (int64, error) {
	if db == nil {
		db = r.db
	}
	q := db.Model(&models.Loan{})
	if filter.MemberID != nil {
		q = q.Where("member_id = ?", *filter.MemberID)
	}
	if filter.BookID != nil {
		q = q.Where("book_id = ?", *filter.BookID)
	}
	if filter.Open != nil {
		if *filter.Open {
			q = q.Where("return_date IS NULL")
		} else {
			q = q.Where("return_date IS NOT NULL")
		}
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *loanRepository) FindOpenFor(db *gorm.DB, memberID, bookID uuid.UUID) (*models.Loan, error) {
	if db == nil {
		db = r.db
	}
	var loan models.Loan
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ? AND book_id = ? AND return_date IS NULL", memberID, bookID).
		Order("borrow_date ASC").
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) List(db *gorm.DB) ([]models.Loan, error) {
	if db == nil {
		db = r.db
	}
	var loans []models.Loan
	err := db.
		Preload("Member").
		Preload("Book").
		Order("borrow_date ASC").
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) ListOpen(db *gorm.DB, withRelations bool) ([]models.Loan, error) {
	if db == nil {
		db = r.db
	}
	q := db.Where("return_date IS NULL").Order("borrow_date ASC")
	if withRelations {
		q = q.Preload("Member").Preload("Book")
	}
	var loans []models.Loan
	if err := q.Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) Create(db *gorm.DB, loan *models.Loan) error {
	if db == nil {
		db = r.db
	}
	return db.Create(loan).Error
}

func (r *loanRepository) Save(db *gorm.DB, loan *models.Loan) error {
	if db == nil {
		db = r.db
	}
	return db.Save(loan).Error
}
