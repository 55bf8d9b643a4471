package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"library-api/internal/models"
	"library-api/internal/repositories"
)

// ─── Lending Policy Constants ─────────────────────────────────────────────────

const (
	// MaxActiveLoans is the number of loans a member may hold open at once.
	MaxActiveLoans = 2

	// LoanPeriodDays is the number of days a member may keep a book before a
	// return triggers a penalty.
	LoanPeriodDays = 7

	// PenaltyDays is how long a late-returning member is barred from borrowing.
	PenaltyDays = 3
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

// ErrInvalidRequest is the base of every domain failure. The transport layer
// maps anything wrapping it to a client error; everything else is a server
// fault.
var ErrInvalidRequest = errors.New("invalid request")

var (
	ErrMemberNotFound = fmt.Errorf("%w: member not found", ErrInvalidRequest)

	ErrBookNotFound = fmt.Errorf("%w: book not found", ErrInvalidRequest)

	// ErrMemberInPenalty is returned while the member's penalty window is open,
	// regardless of book availability.
	ErrMemberInPenalty = fmt.Errorf("%w: member is in penalty", ErrInvalidRequest)

	// ErrDuplicateActiveLoan is returned when the member already holds an open
	// loan on the same book.
	ErrDuplicateActiveLoan = fmt.Errorf("%w: member has already borrowed this book and has not returned it", ErrInvalidRequest)

	ErrLoanLimitExceeded = fmt.Errorf("%w: member cannot borrow more than %d books", ErrInvalidRequest, MaxActiveLoans)

	// ErrNoStockAvailable is returned when every owned copy is out on loan.
	ErrNoStockAvailable = fmt.Errorf("%w: no more book available, book is currently borrowed by another member", ErrInvalidRequest)

	ErrNoActiveLoan = fmt.Errorf("%w: no active loan found for this book", ErrInvalidRequest)

	// ErrAlreadyReturned guards the single permitted ReturnDate transition.
	// The open-loan lookup should make it unreachable; it stays as a guard.
	ErrAlreadyReturned = fmt.Errorf("%w: this book has already been returned", ErrInvalidRequest)
)

// ─── Reporting Payloads ───────────────────────────────────────────────────────

// BookSummary is one borrowed book inside an aggregation row.
type BookSummary struct {
	BookID    uuid.UUID `json:"bookId"`
	BookTitle string    `json:"bookTitle"`
}

// MemberLoans is one group of the currently-borrowed report: a member and the
// books they hold, in the order the open loans were scanned.
type MemberLoans struct {
	MemberID           uuid.UUID     `json:"memberId"`
	MemberName         string        `json:"memberName"`
	BorrowedBooksCount int           `json:"borrowedBooksCount"`
	Books              []BookSummary `json:"books"`
}

// ─── Service Interface ────────────────────────────────────────────────────────

// LoanService owns every lending rule: borrow eligibility, derived stock
// availability, return handling and the penalty mechanism. The repositories
// are pure storage.
type LoanService interface {
	Borrow(memberCode, bookCode string) (*models.Loan, error)
	ReturnBook(memberCode, bookCode string) (*models.Loan, error)
	ListLoans() ([]models.Loan, error)
	BooksCurrentlyBorrowed() ([]MemberLoans, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type loanService struct {
	db         repositories.Transactor
	memberRepo repositories.MemberRepository
	bookRepo   repositories.BookRepository
	loanRepo   repositories.LoanRepository
}

// NewLoanService wires up all dependencies and returns a LoanService.
func NewLoanService(
	db repositories.Transactor,
	memberRepo repositories.MemberRepository,
	bookRepo repositories.BookRepository,
	loanRepo repositories.LoanRepository,
) LoanService {
	return &loanService{
		db:         db,
		memberRepo: memberRepo,
		bookRepo:   bookRepo,
		loanRepo:   loanRepo,
	}
}

// ─── Borrow ───────────────────────────────────────────────────────────────────

// Borrow runs the eligibility checks in a fixed order — member exists, not in
// penalty, book exists, no duplicate open loan, under the loan limit, stock
// available — then decrements stock and opens the loan. Checks and mutation
// run inside one transaction with the member and book rows locked, so two
// borrows racing for the last copy serialize.
//
// The one write that escapes the transaction is the lazy penalty reset: once
// a lapsed penalty is observed it is cleared and persisted immediately, before
// the transaction opens, so a borrow that later fails for an unrelated reason
// still leaves the member clean.
func (s *loanService) Borrow(memberCode, bookCode string) (*models.Loan, error) {
	member, err := s.memberRepo.FindByCode(nil, memberCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	inPenalty, needsReset := PenaltyStatus(member, now)
	if inPenalty {
		log.Printf("[WARN] Borrow: member %s is in penalty until %s", member.Code, member.PenaltyEndDate.Format(time.RFC3339))
		return nil, ErrMemberInPenalty
	}
	if needsReset {
		clearPenalty(member)
		if err := s.memberRepo.Save(nil, member); err != nil {
			log.Printf("[ERROR] Borrow: failed to clear lapsed penalty for member %s: %v", member.Code, err)
			return nil, err
		}
		log.Printf("[INFO] Borrow: penalty lapsed for member %s, cleared", member.Code)
	}

	var result *models.Loan
	err = s.db.Transaction(func(tx *gorm.DB) error {
		member, err := s.memberRepo.FindByCodeForUpdate(tx, memberCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return err
		}

		book, err := s.bookRepo.FindByCodeForUpdate(tx, bookCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		open := true
		duplicates, err := s.loanRepo.CountWhere(tx, repositories.LoanFilter{
			MemberID: &member.ID,
			BookID:   &book.ID,
			Open:     &open,
		})
		if err != nil {
			return err
		}
		if duplicates > 0 {
			return ErrDuplicateActiveLoan
		}

		active, err := s.loanRepo.CountWhere(tx, repositories.LoanFilter{
			MemberID: &member.ID,
			Open:     &open,
		})
		if err != nil {
			return err
		}
		if active >= MaxActiveLoans {
			return ErrLoanLimitExceeded
		}

		borrowed, err := s.loanRepo.CountWhere(tx, repositories.LoanFilter{
			BookID: &book.ID,
			Open:   &open,
		})
		if err != nil {
			return err
		}
		// Availability is derived, never stored: total owned minus copies out.
		available := book.Stock - int(borrowed)
		if available <= 0 {
			return ErrNoStockAvailable
		}

		book.Stock -= 1
		if err := s.bookRepo.Save(tx, book); err != nil {
			log.Printf("[ERROR] Borrow: failed to decrement stock for book %s: %v", book.Code, err)
			return err
		}

		loan := &models.Loan{
			BookID:     book.ID,
			MemberID:   member.ID,
			BorrowDate: now,
		}
		if err := s.loanRepo.Create(tx, loan); err != nil {
			log.Printf("[ERROR] Borrow: failed to create loan for member %s / book %s: %v", member.Code, book.Code, err)
			return err
		}

		loan.Member = *member
		loan.Book = *book
		result = loan
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidRequest) {
			log.Printf("[ERROR] Borrow: transaction failed for member %s / book %s: %v", memberCode, bookCode, err)
		}
		return nil, err
	}

	log.Printf("[INFO] Borrow: loan %s created for member %s / book %s", result.ID, memberCode, bookCode)
	return result, nil
}

// ─── Return ───────────────────────────────────────────────────────────────────

// ReturnBook closes the member's open loan on the book. A return held longer
// than LoanPeriodDays puts the member into penalty before the stock is
// restored and the loan closed; everything runs in one transaction with the
// member and book rows locked.
func (s *loanService) ReturnBook(memberCode, bookCode string) (*models.Loan, error) {
	var result *models.Loan

	err := s.db.Transaction(func(tx *gorm.DB) error {
		member, err := s.memberRepo.FindByCodeForUpdate(tx, memberCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return err
		}

		book, err := s.bookRepo.FindByCodeForUpdate(tx, bookCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		loan, err := s.loanRepo.FindOpenFor(tx, member.ID, book.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveLoan
			}
			return err
		}

		// Guard: the lookup filters on open loans, so this should be
		// unreachable. It documents that ReturnDate transitions only once.
		if loan.ReturnDate != nil {
			log.Printf("[WARN] ReturnBook: loan %s already returned at %s", loan.ID, loan.ReturnDate)
			return ErrAlreadyReturned
		}

		now := time.Now().UTC()
		daysBorrowed := int(now.Sub(loan.BorrowDate).Hours() / 24)
		if daysBorrowed > LoanPeriodDays {
			applyPenalty(member, now)
			if err := s.memberRepo.Save(tx, member); err != nil {
				log.Printf("[ERROR] ReturnBook: failed to persist penalty for member %s: %v", member.Code, err)
				return err
			}
			log.Printf("[WARN] ReturnBook: member %s kept book %s for %d days, penalty until %s",
				member.Code, book.Code, daysBorrowed, member.PenaltyEndDate.Format(time.RFC3339))
		}

		book.Stock += 1
		if err := s.bookRepo.Save(tx, book); err != nil {
			log.Printf("[ERROR] ReturnBook: failed to restore stock for book %s: %v", book.Code, err)
			return err
		}

		loan.ReturnDate = &now
		if err := s.loanRepo.Save(tx, loan); err != nil {
			log.Printf("[ERROR] ReturnBook: failed to close loan %s: %v", loan.ID, err)
			return err
		}

		loan.Member = *member
		loan.Book = *book
		result = loan
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidRequest) {
			log.Printf("[ERROR] ReturnBook: transaction failed for member %s / book %s: %v", memberCode, bookCode, err)
		}
		return nil, err
	}

	log.Printf("[INFO] ReturnBook: loan %s closed for member %s / book %s", result.ID, memberCode, bookCode)
	return result, nil
}

// ─── Queries ──────────────────────────────────────────────────────────────────

// ListLoans returns every loan, open and closed, with member and book resolved.
func (s *loanService) ListLoans() ([]models.Loan, error) {
	return s.loanRepo.List(nil)
}

// BooksCurrentlyBorrowed scans all open loans and groups them by member in
// first-seen order, accumulating a count and the ordered book summaries per
// member. No side effects.
func (s *loanService) BooksCurrentlyBorrowed() ([]MemberLoans, error) {
	loans, err := s.loanRepo.ListOpen(nil, true)
	if err != nil {
		return nil, err
	}

	groups := make(map[uuid.UUID]*MemberLoans)
	order := make([]uuid.UUID, 0, len(loans))

	for _, loan := range loans {
		group, ok := groups[loan.MemberID]
		if !ok {
			group = &MemberLoans{
				MemberID:   loan.MemberID,
				MemberName: loan.Member.Name,
			}
			groups[loan.MemberID] = group
			order = append(order, loan.MemberID)
		}
		group.BorrowedBooksCount++
		group.Books = append(group.Books, BookSummary{
			BookID:    loan.BookID,
			BookTitle: loan.Book.Title,
		})
	}

	result := make([]MemberLoans, 0, len(order))
	for _, id := range order {
		result = append(result, *groups[id])
	}
	return result, nil
}
