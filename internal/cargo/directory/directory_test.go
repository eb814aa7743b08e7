package directory

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"cargotrack/internal/cargo/models"
	dErrors "cargotrack/pkg/domain-errors"
)

var testFields = models.ItemFields{Sender: "alice", Recipient: "bob", Address: "Main St", Owner: "carol"}

// Justification: attachment bookkeeping gates deletion and is not reachable
// through the models package alone.
type DirectorySuite struct {
	suite.Suite
	dir *Directory
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) SetupTest() {
	s.dir = New(WithSequence(models.NewSequence(1)))
}

func (s *DirectorySuite) TestCreate() {
	s.Run("mints sequential ids in creation order", func() {
		a, err := s.dir.Create(testFields)
		s.Require().NoError(err)
		b, err := s.dir.Create(testFields)
		s.Require().NoError(err)

		s.Equal("CI00000001", a.ID())
		s.Equal("CI00000002", b.ID())
		s.Equal([]*models.Item{a, b}, s.dir.List())
	})

	s.Run("rejects invalid fields", func() {
		_, err := s.dir.Create(models.ItemFields{Sender: "a"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate minted id is an invariant violation", func() {
		dir := New(WithSequence(models.NewSequence(5)))
		_, err := dir.Create(testFields)
		s.Require().NoError(err)
		dir.seq = models.NewSequence(5)

		_, err = dir.Create(testFields)

		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		s.Equal(1, dir.Len())
	})
}

func (s *DirectorySuite) TestGet() {
	item, err := s.dir.Create(testFields)
	s.Require().NoError(err)

	got, err := s.dir.Get(item.ID())
	s.Require().NoError(err)
	s.Same(item, got)

	_, err = s.dir.Get("CI99999999")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DirectorySuite) TestInsert() {
	item, err := models.NewItem("CI00000042", testFields)
	s.Require().NoError(err)

	s.Require().NoError(s.dir.Insert(item))
	err = s.dir.Insert(item)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *DirectorySuite) TestAttachments() {
	item, err := s.dir.Create(testFields)
	s.Require().NoError(err)
	other, err := s.dir.Create(testFields)
	s.Require().NoError(err)

	s.Run("attach and list", func() {
		_, err := s.dir.Attach(item.ID(), "dave")
		s.Require().NoError(err)
		_, err = s.dir.Attach(item.ID(), "dave")
		s.Require().NoError(err)
		_, err = s.dir.Attach(item.ID(), "erin")
		s.Require().NoError(err)

		attached, err := s.dir.ListAttached("dave")
		s.Require().NoError(err)
		s.Equal([]*models.Item{item}, attached)
		s.Equal([]string{"dave", "erin"}, s.dir.AttachedUsers(item.ID()))
	})

	s.Run("blank user is rejected", func() {
		_, err := s.dir.Attach(item.ID(), " ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.dir.ListAttached("")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown item", func() {
		_, err := s.dir.Attach("CI99999999", "dave")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("delete is refused while attached", func() {
		err := s.dir.Delete(item.ID())
		s.True(dErrors.HasCode(err, dErrors.CodeAttachmentConflict))
		s.False(item.Deleted())
	})

	s.Run("detach unknown user", func() {
		err := s.dir.Detach(other.ID(), "dave")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal("User 'dave' not attached to item 'CI00000002'", err.Error())
	})

	s.Run("delete succeeds once detached", func() {
		s.Require().NoError(s.dir.Detach(item.ID(), "dave"))
		s.Require().NoError(s.dir.Detach(item.ID(), "erin"))

		s.Require().NoError(s.dir.Delete(item.ID()))

		s.True(item.Deleted())
		s.Equal([]*models.Item{other}, s.dir.List())
		_, err := s.dir.Get(item.ID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *DirectorySuite) TestDeleteDetachesFromContainer() {
	item, err := s.dir.Create(testFields)
	s.Require().NoError(err)
	hub, err := models.NewContainer("HUB", models.ContainerFields{Description: "hub", Type: "Hub"}, models.Location{})
	s.Require().NoError(err)
	s.Require().NoError(hub.Load(item))

	s.Require().NoError(s.dir.Delete(item.ID()))

	s.Empty(hub.MemberIDs())
}
