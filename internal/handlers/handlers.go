package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"library-api/internal/services"
)

type Handler struct {
	loans   services.LoanService
	books   services.BookService
	members services.MemberService
}

func RegisterRoutes(r *gin.Engine, loans services.LoanService, books services.BookService, members services.MemberService) {
	h := &Handler{loans: loans, books: books, members: members}

	r.GET("/books", h.listBooks)
	r.POST("/books", h.createBook)

	r.GET("/members", h.listMembers)
	r.POST("/members", h.createMember)
	r.GET("/members/borrowed-books", h.membersWithBorrowedBooks)
	r.GET("/members/:id", h.getMember)

	r.GET("/loans", h.listLoans)
	r.POST("/loans/borrow", h.borrowBook)
	r.POST("/loans/return", h.returnBook)
	r.GET("/loans/borrowed-books-count", h.booksCurrentlyBorrowed)
}

// writeError maps domain failures to 400 with the reason string; anything else
// is a server fault.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

type createBookRequest struct {
	Code   string `json:"code" binding:"required"`
	Title  string `json:"title" binding:"required"`
	Author string `json:"author" binding:"required"`
	Stock  int    `json:"stock" binding:"min=0"`
}

func (h *Handler) createBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := h.books.Create(req.Code, req.Title, req.Author, req.Stock)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (h *Handler) listBooks(c *gin.Context) {
	books, err := h.books.List()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

type createMemberRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

func (h *Handler) createMember(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.members.Create(req.Code, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (h *Handler) listMembers(c *gin.Context) {
	members, err := h.members.List()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *Handler) getMember(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	member, err := h.members.GetByID(id)
	if err != nil {
		if errors.Is(err, services.ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *Handler) membersWithBorrowedBooks(c *gin.Context) {
	report, err := h.members.MembersWithBorrowedBooks()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type loanRequest struct {
	MemberCode string `json:"memberCode" binding:"required"`
	BookCode   string `json:"bookCode" binding:"required"`
}

func (h *Handler) borrowBook(c *gin.Context) {
	var req loanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan, err := h.loans.Borrow(req.MemberCode, req.BookCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (h *Handler) returnBook(c *gin.Context) {
	var req loanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan, err := h.loans.ReturnBook(req.MemberCode, req.BookCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (h *Handler) listLoans(c *gin.Context) {
	loans, err := h.loans.ListLoans()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

func (h *Handler) booksCurrentlyBorrowed(c *gin.Context) {
	report, err := h.loans.BooksCurrentlyBorrowed()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
