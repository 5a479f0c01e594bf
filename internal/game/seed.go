package game

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"tradesim/internal/auth"
	"tradesim/internal/ledger"
)

// seedTeam is one entry in the default roster. Passwords follow the
// company-name-plus-founding-year convention handed out to participants.
type seedTeam struct {
	Name     string
	Username string
	Password string
}

var defaultRoster = map[ledger.Industry][]seedTeam{
	ledger.Cement: {
		{"UltraTech Cement", "ultratechcement", "ultratechcement1983"},
		{"ACC Limited", "acclimited", "acclimited1936"},
		{"Ambuja Cements", "ambujacements", "ambujacements1983"},
		{"Shree Cement", "shreecement", "shreecement1979"},
	},
	ledger.Energy: {
		{"Reliance Energy", "relianceenergy", "relianceenergy1973"},
		{"Tata Power", "tatapower", "tatapower1919"},
		{"Adani Power", "adanipower", "adanipower1996"},
		{"NTPC Limited", "ntpclimited", "ntpclimited1975"},
	},
	ledger.Iron: {
		{"Tata Steel", "tatasteel", "tatasteel1907"},
		{"JSW Steel", "jswsteel", "jswsteel1982"},
		{"SAIL", "sail", "sail1954"},
		{"Jindal Steel", "jindalsteel", "jindalsteel1979"},
	},
	ledger.Aluminium: {
		{"Hindalco", "hindalco", "hindalco1958"},
		{"Vedanta Aluminium", "vedantaaluminium", "vedantaaluminium1976"},
		{"NALCO", "nalco", "nalco1981"},
		{"Balco", "balco", "balco1965"},
	},
	ledger.Wood: {
		{"Century Plyboards", "centuryplyboards", "centuryplyboards1986"},
		{"Greenply Industries", "greenplyindustries", "greenplyindustries1990"},
		{"Kitply Industries", "kitplyindustries", "kitplyindustries1982"},
		{"Archidply Industries", "archidplyindustries", "archidplyindustries1976"},
	},
}

// SeedConfig controls initial provisioning of a fresh ledger.
type SeedConfig struct {
	AdminName     string
	AdminUsername string
	AdminPassword string
}

// SetRand swaps the RNG used for raw-unit allocation. Tests inject a seeded
// generator here.
func (s *Service) SetRand(rng *rand.Rand) {
	if rng == nil {
		return
	}
	s.mu.Lock()
	s.rng = rng
	s.mu.Unlock()
}

// Seed provisions the admin account and the full 20-team roster on an empty
// ledger. Teams that already exist (by username) are left alone, so calling
// Seed on a restored snapshot is harmless.
func (s *Service) Seed(cfg SeedConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.TeamByUsername(cfg.AdminUsername); !ok {
		hash, err := auth.HashPassword(cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		s.state.Teams = append(s.state.Teams, &ledger.Team{
			ID:           s.state.NextID(),
			Name:         cfg.AdminName,
			Username:     cfg.AdminUsername,
			PasswordHash: hash,
			IsAdmin:      true,
			CreatedAt:    s.now(),
		})
	}

	for _, industry := range ledger.Industries {
		for _, seed := range defaultRoster[industry] {
			if _, ok := s.state.TeamByUsername(seed.Username); ok {
				continue
			}
			if err := s.addTeam(seed.Name, seed.Username, seed.Password, industry); err != nil {
				return err
			}
		}
	}
	return nil
}

// CreateTeam lets an admin register a single extra team mid-setup.
func (s *Service) CreateTeam(adminID int64, name, username, password string, industry ledger.Industry) (TeamSnapshot, error) {
	if !industry.Valid() {
		return TeamSnapshot{}, ErrInvalidIndustry
	}
	name = strings.TrimSpace(name)
	username = strings.TrimSpace(username)
	if name == "" || username == "" || password == "" {
		return TeamSnapshot{}, fmt.Errorf("%w: name, username and password are required", ErrInvalidTeamInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.adminTeam(adminID); err != nil {
		return TeamSnapshot{}, err
	}
	if _, ok := s.state.TeamByUsername(username); ok {
		return TeamSnapshot{}, ErrUsernameTaken
	}
	if err := s.addTeam(name, username, password, industry); err != nil {
		return TeamSnapshot{}, err
	}
	team, _ := s.state.TeamByUsername(username)
	return s.teamSnapshot(team), nil
}

// ReallocateRawUnits re-rolls every playing team's raw inventory within the
// given range. Material units and balances are untouched.
func (s *Service) ReallocateRawUnits(adminID, min, max int64) error {
	if min < 1 || max < min {
		return fmt.Errorf("%w: range [%d, %d]", ErrInvalidQuantity, min, max)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.adminTeam(adminID); err != nil {
		return err
	}
	if s.state.Status == ledger.StatusEnded {
		return ErrGameEnded
	}
	for _, team := range s.state.Teams {
		if team.IsAdmin {
			continue
		}
		for _, industry := range ledger.Industries {
			team.Inv(industry).Raw = s.rollRaw(min, max)
		}
	}
	s.log.Info("raw units reallocated", "min", min, "max", max)
	return nil
}

// addTeam creates the team row and rolls its starting raw inventory across
// all five industries. Caller holds the write lock.
func (s *Service) addTeam(name, username, password string, industry ledger.Industry) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password for %q: %w", username, err)
	}
	team := &ledger.Team{
		ID:             s.state.NextID(),
		Name:           name,
		Username:       username,
		PasswordHash:   hash,
		Industry:       industry,
		InitialBalance: InitialBalance,
		Balance:        InitialBalance,
		CreatedAt:      s.now(),
	}
	for _, ind := range ledger.Industries {
		team.Inv(ind).Raw = s.rollRaw(MinInitialRawUnits, MaxInitialRawUnits)
	}
	s.state.Teams = append(s.state.Teams, team)
	return nil
}

func (s *Service) rollRaw(min, max int64) int64 {
	return min + s.rng.Int64N(max-min+1)
}
