package repositories_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-api/internal/models"
	"library-api/internal/repositories"
)

func Test_MemoryLoanRepository_CountWhere(t *testing.T) {
	store := repositories.NewMemoryStore()

	member1 := &models.Member{Code: "M001", Name: "Angga"}
	member2 := &models.Member{Code: "M002", Name: "Ferry"}
	require.NoError(t, store.Members().Create(nil, member1))
	require.NoError(t, store.Members().Create(nil, member2))

	book := &models.Book{Code: "JK-45", Title: "Harry Potter", Author: "J.K. Rowling", Stock: 3}
	require.NoError(t, store.Books().Create(nil, book))

	now := time.Now().UTC()
	closed := now.Add(-time.Hour)
	require.NoError(t, store.Loans().Create(nil, &models.Loan{MemberID: member1.ID, BookID: book.ID, BorrowDate: now}))
	require.NoError(t, store.Loans().Create(nil, &models.Loan{MemberID: member2.ID, BookID: book.ID, BorrowDate: now}))
	require.NoError(t, store.Loans().Create(nil, &models.Loan{MemberID: member1.ID, BookID: book.ID, BorrowDate: now.Add(-2 * time.Hour), ReturnDate: &closed}))

	open := true
	closedOnly := false

	count, err := store.Loans().CountWhere(nil, repositories.LoanFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = store.Loans().CountWhere(nil, repositories.LoanFilter{Open: &open})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = store.Loans().CountWhere(nil, repositories.LoanFilter{Open: &closedOnly})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = store.Loans().CountWhere(nil, repositories.LoanFilter{MemberID: &member1.ID, Open: &open})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = store.Loans().CountWhere(nil, repositories.LoanFilter{MemberID: &member1.ID, BookID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func Test_MemoryStore_ReadsReturnCopies(t *testing.T) {
	store := repositories.NewMemoryStore()

	member := &models.Member{Code: "M001", Name: "Angga"}
	require.NoError(t, store.Members().Create(nil, member))

	loaded, err := store.Members().FindByCode(nil, "M001")
	require.NoError(t, err)
	loaded.Name = "changed without save"

	again, err := store.Members().FindByCode(nil, "M001")
	require.NoError(t, err)
	assert.Equal(t, "Angga", again.Name)

	loaded.Name = "saved"
	require.NoError(t, store.Members().Save(nil, loaded))
	again, err = store.Members().FindByCode(nil, "M001")
	require.NoError(t, err)
	assert.Equal(t, "saved", again.Name)
}
