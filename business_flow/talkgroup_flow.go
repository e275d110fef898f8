// Package businessflow contains the core business logic for the talkgroup directory
package businessflow

import (
	"context"
	"strconv"
	"strings"

	"github.com/ea7klk/bm-stats/app/dto"
	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/repository"
)

// TalkgroupFlow serves the read side of the talkgroup directory
type TalkgroupFlow interface {
	ListTalkgroups(ctx context.Context, req *dto.ListTalkgroupsRequest) (*dto.ListTalkgroupsResponse, error)
	GetTalkgroup(ctx context.Context, talkgroupID int64) (*dto.TalkgroupDTO, error)
	ListContinents(ctx context.Context) ([]string, error)
	ListCountries(ctx context.Context, continent string) ([]dto.CountryOption, error)
}

// TalkgroupFlowImpl implements the talkgroup directory flow
type TalkgroupFlowImpl struct {
	tgRepo repository.TalkgroupRepository
}

// NewTalkgroupFlow creates a new talkgroup flow instance
func NewTalkgroupFlow(tgRepo repository.TalkgroupRepository) TalkgroupFlow {
	return &TalkgroupFlowImpl{tgRepo: tgRepo}
}

// ListTalkgroups returns directory entries matching the filters
func (t *TalkgroupFlowImpl) ListTalkgroups(ctx context.Context, req *dto.ListTalkgroupsRequest) (*dto.ListTalkgroupsResponse, error) {
	filter := models.TalkgroupFilter{}

	if c := strings.TrimSpace(req.Continent); c != "" {
		filter.Continent = &c
	}
	if c := strings.ToUpper(strings.TrimSpace(req.Country)); c != "" {
		filter.CountryCode = &c
	}
	if s := strings.TrimSpace(req.Search); s != "" {
		// A numeric search term matches the talkgroup ID, anything else
		// matches the name
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			filter.TalkgroupID = &id
		} else {
			filter.NameLike = &s
		}
	}

	entries, err := t.tgRepo.ByFilter(ctx, filter, "talkgroup_id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("LIST_TALKGROUPS_FAILED", "List talkgroups failed", err)
	}

	total, err := t.tgRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_TALKGROUPS_FAILED", "List talkgroups failed", err)
	}

	resp := &dto.ListTalkgroupsResponse{
		Talkgroups: make([]dto.TalkgroupDTO, 0, len(entries)),
		Total:      total,
	}
	for _, tg := range entries {
		resp.Talkgroups = append(resp.Talkgroups, ToTalkgroupDTO(*tg))
	}

	return resp, nil
}

// GetTalkgroup returns one directory entry
func (t *TalkgroupFlowImpl) GetTalkgroup(ctx context.Context, talkgroupID int64) (*dto.TalkgroupDTO, error) {
	tg, err := t.tgRepo.ByTalkgroupID(ctx, talkgroupID)
	if err != nil {
		return nil, NewBusinessError("GET_TALKGROUP_FAILED", "Get talkgroup failed", err)
	}
	if tg == nil {
		return nil, NewBusinessError("TALKGROUP_NOT_FOUND", "Talkgroup not found", ErrTalkgroupNotFound)
	}

	d := ToTalkgroupDTO(*tg)
	return &d, nil
}

// ListContinents returns the continents present in the directory
func (t *TalkgroupFlowImpl) ListContinents(ctx context.Context) ([]string, error) {
	continents, err := t.tgRepo.ListContinents(ctx)
	if err != nil {
		return nil, NewBusinessError("LIST_CONTINENTS_FAILED", "List continents failed", err)
	}
	return continents, nil
}

// ListCountries returns the countries on a continent, or all countries when
// the continent is empty
func (t *TalkgroupFlowImpl) ListCountries(ctx context.Context, continent string) ([]dto.CountryOption, error) {
	rows, err := t.tgRepo.ListCountries(ctx, strings.TrimSpace(continent))
	if err != nil {
		return nil, NewBusinessError("LIST_COUNTRIES_FAILED", "List countries failed", err)
	}

	countries := make([]dto.CountryOption, 0, len(rows))
	for _, row := range rows {
		countries = append(countries, dto.CountryOption{
			Code: row.CountryCode,
			Name: row.CountryName,
		})
	}
	return countries, nil
}
