package directory

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"cargotrack/internal/cargo/models"
	dErrors "cargotrack/pkg/domain-errors"
)

type RegistrySuite struct {
	suite.Suite
	reg *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.reg = NewRegistry()
}

func (s *RegistrySuite) newContainer(id string) *models.Container {
	c, err := models.NewContainer(id, models.ContainerFields{Description: "desc", Type: "Truck"}, models.Location{Lon: 1, Lat: 2})
	s.Require().NoError(err)
	return c
}

func (s *RegistrySuite) TestAdd() {
	a := s.newContainer("A")
	b := s.newContainer("B")
	s.Require().NoError(s.reg.Add(a))
	s.Require().NoError(s.reg.Add(b))

	err := s.reg.Add(s.newContainer("A"))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal("container exists", err.Error())

	s.Equal([]*models.Container{a, b}, s.reg.List())
	s.Equal(2, s.reg.Len())
}

func (s *RegistrySuite) TestGet() {
	a := s.newContainer("A")
	s.Require().NoError(s.reg.Add(a))

	got, err := s.reg.Get("A")
	s.Require().NoError(err)
	s.Same(a, got)

	_, err = s.reg.Get("Z")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RegistrySuite) TestDelete() {
	a := s.newContainer("A")
	s.Require().NoError(s.reg.Add(a))
	item, err := models.NewItem("CI00000001", testFields)
	s.Require().NoError(err)
	s.Require().NoError(a.Load(item))

	s.Require().NoError(s.reg.Delete("A"))

	s.True(a.Deleted())
	s.Empty(item.ContainerID())
	s.Zero(s.reg.Len())
	s.Require().NoError(s.reg.Add(s.newContainer("A")), "id is free again")

	err = s.reg.Delete("missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
