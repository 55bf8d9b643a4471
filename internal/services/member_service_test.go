package services_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-api/internal/repositories"
	"library-api/internal/services"
)

func Test_MemberService_CreateAndGet(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := services.NewMemberService(store.Members())

	member, err := svc.Create("M001", "Angga")
	require.NoError(t, err)

	found, err := svc.GetByID(member.ID)
	require.NoError(t, err)
	assert.Equal(t, "Angga", found.Name)
	assert.False(t, found.Penalty)
}

func Test_MemberService_GetByID_NotFound(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := services.NewMemberService(store.Members())

	_, err := svc.GetByID(uuid.New())
	assert.ErrorIs(t, err, services.ErrMemberNotFound)
}

func Test_MemberService_RejectsDuplicateCode(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := services.NewMemberService(store.Members())

	_, err := svc.Create("M001", "Angga")
	require.NoError(t, err)

	_, err = svc.Create("M001", "Ferry")
	assert.ErrorIs(t, err, services.ErrMemberCodeTaken)
}

func Test_MemberService_List(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := services.NewMemberService(store.Members())

	_, err := svc.Create("M001", "Angga")
	require.NoError(t, err)
	_, err = svc.Create("M002", "Ferry")
	require.NoError(t, err)

	members, err := svc.List()
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "M001", members[0].Code)
	assert.Equal(t, "M002", members[1].Code)
}
