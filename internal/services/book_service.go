package services

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"library-api/internal/models"
	"library-api/internal/repositories"
)

var (
	// ErrBookCodeTaken is returned when creating a book with a code already
	// in the catalog.
	ErrBookCodeTaken = fmt.Errorf("%w: book code already exists", ErrInvalidRequest)

	ErrNegativeStock = fmt.Errorf("%w: stock must not be negative", ErrInvalidRequest)
)

// BookService covers the thin catalog operations; no lending rules live here.
type BookService interface {
	List() ([]models.Book, error)
	Create(code, title, author string, stock int) (*models.Book, error)
}

type bookService struct {
	bookRepo repositories.BookRepository
}

func NewBookService(bookRepo repositories.BookRepository) BookService {
	return &bookService{bookRepo: bookRepo}
}

func (s *bookService) List() ([]models.Book, error) {
	return s.bookRepo.List(nil)
}

func (s *bookService) Create(code, title, author string, stock int) (*models.Book, error) {
	if stock < 0 {
		return nil, ErrNegativeStock
	}

	if _, err := s.bookRepo.FindByCode(nil, code); err == nil {
		return nil, ErrBookCodeTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	book := &models.Book{
		Code:   code,
		Title:  title,
		Author: author,
		Stock:  stock,
	}
	if err := s.bookRepo.Create(nil, book); err != nil {
		log.Printf("[ERROR] CreateBook: failed to create book %q: %v", code, err)
		return nil, err
	}
	log.Printf("[INFO] CreateBook: created book %q (id=%s) with stock %d", book.Title, book.ID, stock)
	return book, nil
}
