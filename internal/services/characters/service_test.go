package characters

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/storage/memory"
	"github.com/mcoot/comicguess/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.service = New(s.storage, testutil.NopLogger())
	s.ctx = context.Background()
}

const seed = `
marvel:
  - name: Spider-Man
    aliases: [Peter Parker]
    image_key: marvel/spider-man.jpg
  - id: marvel-logan
    name: Wolverine
    image_key: marvel/wolverine.png
dc:
  - name: Batman
    image_key: dc/batman.jpg
`

func (s *ServiceSuite) TestParseSeedDerivesIDs() {
	pools, err := ParseSeed([]byte(seed))
	s.Require().NoError(err)

	s.Require().Len(pools[model.TrackMarvel], 2)
	s.Equal(model.CharacterID("marvel-spider-man"), pools[model.TrackMarvel][0].ID)
	s.Equal(model.CharacterID("marvel-logan"), pools[model.TrackMarvel][1].ID)
	s.Equal(model.TrackMarvel, pools[model.TrackMarvel][0].Track)
	s.Equal([]string{"Peter Parker"}, pools[model.TrackMarvel][0].Aliases)
}

func (s *ServiceSuite) TestParseSeedRejectsUnknownTrack() {
	_, err := ParseSeed([]byte("darkhorse:\n  - name: Hellboy\n    image_key: darkhorse/hellboy.jpg\n"))
	s.ErrorIs(err, model.ErrInvalidTrack)
}

func (s *ServiceSuite) TestParseSeedRejectsBadYAML() {
	_, err := ParseSeed([]byte("marvel: [unclosed"))
	s.Error(err)
}

func (s *ServiceSuite) TestParseSeedRejectsNullEntry() {
	_, err := ParseSeed([]byte("marvel: [~]\n"))
	s.ErrorContains(err, "parse seed")

	_, err = ParseSeed([]byte("dc:\n  - name: Batman\n    image_key: dc/batman.jpg\n  -\n"))
	s.ErrorContains(err, "entry 2 is empty")
}

func (s *ServiceSuite) TestLoadSeedRejectsIDSharedAcrossTracks() {
	shared := `
marvel:
  - id: hero
    name: Spider-Man
    image_key: marvel/spider-man.jpg
dc:
  - id: hero
    name: Batman
    image_key: dc/batman.jpg
`
	err := s.service.LoadSeed(s.ctx, []byte(shared))
	s.ErrorIs(err, model.ErrInvalidPool)
	s.ErrorContains(err, "hero")

	_, err = s.service.Get(s.ctx, "hero")
	s.ErrorIs(err, model.ErrCharacterNotFound)
	marvel, err := s.service.Pool(s.ctx, model.TrackMarvel)
	s.Require().NoError(err)
	s.Empty(marvel)
}

func (s *ServiceSuite) TestLoadCharactersRefusesIDOwnedByAnotherTrack() {
	s.Require().NoError(s.service.LoadSeed(s.ctx, []byte(seed)))

	err := s.service.LoadCharacters(s.ctx, model.TrackDC, []*model.Character{
		{ID: "marvel-logan", Name: "Logan", ImageKey: "dc/logan.jpg"},
	})
	s.ErrorIs(err, model.ErrCharacterIDTaken)

	c, err := s.service.Get(s.ctx, "marvel-logan")
	s.Require().NoError(err)
	s.Equal("Wolverine", c.Name)
}

func (s *ServiceSuite) TestLoadSeedStoresPools() {
	s.Require().NoError(s.service.LoadSeed(s.ctx, []byte(seed)))

	marvel, err := s.service.Pool(s.ctx, model.TrackMarvel)
	s.Require().NoError(err)
	s.Len(marvel, 2)

	dc, err := s.service.Pool(s.ctx, model.TrackDC)
	s.Require().NoError(err)
	s.Len(dc, 1)

	image, err := s.service.Pool(s.ctx, model.TrackImage)
	s.Require().NoError(err)
	s.Empty(image)

	c, err := s.service.Get(s.ctx, "dc-batman")
	s.Require().NoError(err)
	s.Equal("Batman", c.Name)
}

func (s *ServiceSuite) TestLoadSeedStoresNothingWhenAnyPoolIsInvalid() {
	bad := seed + `image:
  - name: Spawn
    image_key: marvel/spawn.jpg
`
	err := s.service.LoadSeed(s.ctx, []byte(bad))
	s.ErrorIs(err, model.ErrInvalidPool)

	marvel, err := s.service.Pool(s.ctx, model.TrackMarvel)
	s.Require().NoError(err)
	s.Empty(marvel)
}

func (s *ServiceSuite) TestLoadFromFile() {
	path := filepath.Join(s.T().TempDir(), "characters.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(seed), 0o600))

	s.Require().NoError(s.service.LoadFromFile(s.ctx, path))

	pool, err := s.service.Pool(s.ctx, model.TrackMarvel)
	s.Require().NoError(err)
	s.Len(pool, 2)
}

func (s *ServiceSuite) TestLoadFromFileMissing() {
	err := s.service.LoadFromFile(s.ctx, filepath.Join(s.T().TempDir(), "nope.yaml"))
	s.ErrorIs(err, os.ErrNotExist)
}

func (s *ServiceSuite) TestBundledSeedIsValid() {
	s.Require().NoError(s.service.LoadFromFile(s.ctx, "../../../data/characters.yaml"))

	for _, track := range model.AllTracks() {
		pool, err := s.service.Pool(s.ctx, track)
		s.Require().NoError(err)
		s.Len(pool, 5, "track %s", track)
	}
}

func (s *ServiceSuite) TestLoadCharactersFillsIDs() {
	err := s.service.LoadCharacters(s.ctx, model.TrackImage, []*model.Character{
		{Name: "Invincible", ImageKey: "image/invincible.jpg"},
	})
	s.Require().NoError(err)

	c, err := s.service.Get(s.ctx, "image-invincible")
	s.Require().NoError(err)
	s.Equal(model.TrackImage, c.Track)
}

// Validation tests

func (s *ServiceSuite) TestValidateEmptyPoolIsCritical() {
	r := Validate(model.TrackDC, nil)
	s.True(r.Blocking())
	s.Require().Len(r.Issues, 1)
	s.Equal(SeverityCritical, r.Issues[0].Severity)
}

func (s *ServiceSuite) TestValidateCatchesDuplicateNames() {
	r := Validate(model.TrackMarvel, []*model.Character{
		{ID: "a", Name: "Spider-Man", ImageKey: "marvel/a.jpg"},
		{ID: "b", Name: "spider man", ImageKey: "marvel/b.jpg"},
	})
	s.True(r.Blocking())
}

func (s *ServiceSuite) TestValidateCatchesAliasCollisions() {
	r := Validate(model.TrackDC, []*model.Character{
		{ID: "a", Name: "Batman", Aliases: []string{"Bruce"}, ImageKey: "dc/a.jpg"},
		{ID: "b", Name: "Bruce", ImageKey: "dc/b.jpg"},
	})
	s.True(r.Blocking())
}

func (s *ServiceSuite) TestValidateAllowsAliasMatchingOwnName() {
	r := Validate(model.TrackMarvel, []*model.Character{
		{ID: "a", Name: "Spider-Man", Aliases: []string{"Spider Man"}, ImageKey: "marvel/a.jpg"},
	})
	s.False(r.Blocking())
	s.Empty(r.Issues)
}

func (s *ServiceSuite) TestValidateCatchesEmptyName() {
	r := Validate(model.TrackMarvel, []*model.Character{
		{ID: "a", Name: "  ", ImageKey: "marvel/a.jpg"},
	})
	s.True(r.Blocking())
}

func (s *ServiceSuite) TestValidateCatchesWrongImagePrefix() {
	r := Validate(model.TrackImage, []*model.Character{
		{ID: "a", Name: "Spawn", ImageKey: "dc/spawn.jpg"},
	})
	s.True(r.Blocking())
}

func (s *ServiceSuite) TestValidateUnusualExtensionIsOnlyAWarning() {
	r := Validate(model.TrackImage, []*model.Character{
		{ID: "a", Name: "Spawn", ImageKey: "image/spawn.tiff"},
	})
	s.False(r.Blocking())
	s.Require().Len(r.Issues, 1)
	s.Equal(SeverityWarning, r.Issues[0].Severity)
}

func (s *ServiceSuite) TestValidateCatchesDuplicateIDs() {
	r := Validate(model.TrackMarvel, []*model.Character{
		{ID: "a", Name: "Thor", ImageKey: "marvel/a.jpg"},
		{ID: "a", Name: "Hulk", ImageKey: "marvel/b.jpg"},
	})
	s.True(r.Blocking())
}
