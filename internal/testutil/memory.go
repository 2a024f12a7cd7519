// Package testutil provides in-memory repositories and fakes for package tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/campaign"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/user"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// Store is a mutex-guarded stand-in for the database. Foreign keys and the
// unique code / username indexes are enforced the same way Postgres does.
type Store struct {
	mu        sync.Mutex
	nextID    int64
	campaigns map[int64]*campaign.Campaign
	coupons   map[int64]*coupon.Coupon
	users     map[int64]*user.User
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		campaigns: map[int64]*campaign.Campaign{},
		coupons:   map[int64]*coupon.Coupon{},
		users:     map[int64]*user.User{},
	}
}

// Campaigns returns a campaign.Repository over the store.
func (s *Store) Campaigns() *CampaignRepo { return &CampaignRepo{s: s} }

// Coupons returns a coupon.Repository over the store.
func (s *Store) Coupons() *CouponRepo { return &CouponRepo{s: s} }

// Users returns a user.Repository over the store.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func copyCampaign(c *campaign.Campaign) *campaign.Campaign {
	return campaign.Reconstruct(c.ID(), c.Name(), c.Description(), c.Active(), c.CreatedAt())
}

func copyCoupon(c *coupon.Coupon) *coupon.Coupon {
	meta := make(map[string]interface{}, len(c.Metadata()))
	for k, v := range c.Metadata() {
		meta[k] = v
	}
	return coupon.Reconstruct(c.ID(), c.Code(), copyInt(c.CampaignID()), copyInt(c.AssignedTo()),
		copyTime(c.AssignedAt()), c.Redeemed(), copyTime(c.RedeemedAt()), meta, c.CreatedAt(), c.UpdatedAt())
}

func copyUser(u *user.User) *user.User {
	return user.Reconstruct(u.ID(), u.Username(), append([]string(nil), u.Roles()...), u.Attributes(), u.HashedPassword(), u.CreatedAt())
}

func copyInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortedIDs[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func fmtID(id int64) string { return strconv.FormatInt(id, 10) }

// CampaignRepo implements campaign.Repository.
type CampaignRepo struct{ s *Store }

var _ campaign.Repository = (*CampaignRepo)(nil)

func (r *CampaignRepo) Save(_ context.Context, c *campaign.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.SetID(r.s.id())
	r.s.campaigns[c.ID()] = copyCampaign(c)
	return nil
}

func (r *CampaignRepo) Update(_ context.Context, c *campaign.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.campaigns[c.ID()]; !ok {
		return domain.NewNotFoundError("Campaign", fmtID(c.ID()))
	}
	r.s.campaigns[c.ID()] = copyCampaign(c)
	return nil
}

func (r *CampaignRepo) FindByID(_ context.Context, id int64) (*campaign.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return nil, domain.NewNotFoundError("Campaign", fmtID(id))
	}
	return copyCampaign(c), nil
}

func (r *CampaignRepo) FindByName(_ context.Context, name string) (*campaign.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range sortedIDs(r.s.campaigns) {
		if c := r.s.campaigns[id]; c.Name() == name {
			return copyCampaign(c), nil
		}
	}
	return nil, domain.NewNotFoundError("Campaign", name)
}

func (r *CampaignRepo) List(_ context.Context, offset, limit int) ([]*campaign.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*campaign.Campaign
	for _, id := range sortedIDs(r.s.campaigns) {
		out = append(out, copyCampaign(r.s.campaigns[id]))
	}
	return page(out, offset, limit), nil
}

func (r *CampaignRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.campaigns[id]; !ok {
		return false, nil
	}
	for _, c := range r.s.coupons {
		if c.CampaignID() != nil && *c.CampaignID() == id {
			return false, domain.NewConflictError("campaign is referenced by or references a missing record")
		}
	}
	delete(r.s.campaigns, id)
	return true, nil
}

// Count returns the number of stored campaigns.
func (r *CampaignRepo) Count() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.campaigns)
}

// UserRepo implements user.Repository.
type UserRepo struct{ s *Store }

var _ user.Repository = (*UserRepo)(nil)

func (r *UserRepo) Save(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Username() == u.Username() {
			return domain.NewConflictError("user already exists")
		}
	}
	u.SetID(r.s.id())
	r.s.users[u.ID()] = copyUser(u)
	return nil
}

func (r *UserRepo) Update(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID()]; !ok {
		return domain.NewNotFoundError("User", fmtID(u.ID()))
	}
	for id, existing := range r.s.users {
		if id != u.ID() && existing.Username() == u.Username() {
			return domain.NewConflictError("user already exists")
		}
	}
	r.s.users[u.ID()] = copyUser(u)
	return nil
}

func (r *UserRepo) FindByID(_ context.Context, id int64) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("User", fmtID(id))
	}
	return copyUser(u), nil
}

func (r *UserRepo) FindByUsername(_ context.Context, username string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username() == username {
			return copyUser(u), nil
		}
	}
	return nil, domain.NewNotFoundError("User", username)
}

func (r *UserRepo) List(_ context.Context, offset, limit int) ([]*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*user.User
	for _, id := range sortedIDs(r.s.users) {
		out = append(out, copyUser(r.s.users[id]))
	}
	return page(out, offset, limit), nil
}

func (r *UserRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return false, nil
	}
	for _, c := range r.s.coupons {
		if c.IsAssignedTo(id) {
			return false, domain.NewConflictError("user is referenced by or references a missing record")
		}
	}
	delete(r.s.users, id)
	return true, nil
}

// CouponRepo implements coupon.Repository. UpdateAssignment and MarkRedeemed are
// atomic compare-and-swap operations under the store mutex.
type CouponRepo struct{ s *Store }

var _ coupon.Repository = (*CouponRepo)(nil)

func (r *CouponRepo) checkRefs(c *coupon.Coupon) error {
	if c.CampaignID() != nil {
		if _, ok := r.s.campaigns[*c.CampaignID()]; !ok {
			return domain.NewConflictError("coupon is referenced by or references a missing record")
		}
	}
	if c.AssignedTo() != nil {
		if _, ok := r.s.users[*c.AssignedTo()]; !ok {
			return domain.NewConflictError("coupon is referenced by or references a missing record")
		}
	}
	return nil
}

func (r *CouponRepo) codeTaken(code string, selfID int64) bool {
	for id, c := range r.s.coupons {
		if id != selfID && c.Code() == code {
			return true
		}
	}
	return false
}

func (r *CouponRepo) Save(_ context.Context, c *coupon.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.codeTaken(c.Code(), 0) {
		return domain.NewConflictError("coupon already exists")
	}
	if err := r.checkRefs(c); err != nil {
		return err
	}
	c.SetID(r.s.id())
	r.s.coupons[c.ID()] = copyCoupon(c)
	return nil
}

func (r *CouponRepo) Update(_ context.Context, c *coupon.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.coupons[c.ID()]
	if !ok {
		return domain.NewNotFoundError("Coupon", fmtID(c.ID()))
	}
	if r.codeTaken(c.Code(), c.ID()) {
		return domain.NewConflictError("coupon already exists")
	}
	if err := r.checkRefs(c); err != nil {
		return err
	}
	r.s.coupons[c.ID()] = coupon.Reconstruct(stored.ID(), c.Code(), copyInt(c.CampaignID()),
		stored.AssignedTo(), stored.AssignedAt(), stored.Redeemed(), stored.RedeemedAt(),
		c.Metadata(), stored.CreatedAt(), c.UpdatedAt())
	return nil
}

func (r *CouponRepo) FindByID(_ context.Context, id int64) (*coupon.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[id]
	if !ok {
		return nil, domain.NewNotFoundError("Coupon", fmtID(id))
	}
	return copyCoupon(c), nil
}

func (r *CouponRepo) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.coupons {
		if c.Code() == code {
			return copyCoupon(c), nil
		}
	}
	return nil, domain.NewNotFoundError("Coupon", code)
}

func (r *CouponRepo) List(_ context.Context, f coupon.Filter, offset, limit int) ([]*coupon.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*coupon.Coupon
	for _, id := range sortedIDs(r.s.coupons) {
		c := r.s.coupons[id]
		if f.CampaignID != nil && (c.CampaignID() == nil || *c.CampaignID() != *f.CampaignID) {
			continue
		}
		if f.AssignedTo != nil && !c.IsAssignedTo(*f.AssignedTo) {
			continue
		}
		if f.UnassignedOnly && c.AssignedTo() != nil {
			continue
		}
		if f.UnredeemedOnly && c.Redeemed() {
			continue
		}
		out = append(out, copyCoupon(c))
	}
	return page(out, offset, limit), nil
}

func (r *CouponRepo) FirstUnassignedInCampaign(_ context.Context, campaignID int64) (*coupon.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range sortedIDs(r.s.coupons) {
		c := r.s.coupons[id]
		if c.CampaignID() != nil && *c.CampaignID() == campaignID && c.AssignedTo() == nil {
			return copyCoupon(c), nil
		}
	}
	return nil, domain.NewNotFoundError("Unassigned coupon in campaign", fmtID(campaignID))
}

func (r *CouponRepo) UpdateAssignment(_ context.Context, c *coupon.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.coupons[c.ID()]
	if !ok || stored.AssignedTo() != nil {
		return domain.NewConflictError("coupon was assigned by another request")
	}
	if err := r.checkRefs(c); err != nil {
		return err
	}
	r.s.coupons[c.ID()] = coupon.Reconstruct(stored.ID(), stored.Code(), stored.CampaignID(),
		copyInt(c.AssignedTo()), copyTime(c.AssignedAt()), stored.Redeemed(), stored.RedeemedAt(),
		stored.Metadata(), stored.CreatedAt(), c.UpdatedAt())
	return nil
}

func (r *CouponRepo) MarkRedeemed(_ context.Context, c *coupon.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.coupons[c.ID()]
	if !ok || stored.Redeemed() || stored.AssignedTo() == nil {
		return domain.NewConflictError("coupon was redeemed by another request")
	}
	r.s.coupons[c.ID()] = coupon.Reconstruct(stored.ID(), stored.Code(), stored.CampaignID(),
		stored.AssignedTo(), stored.AssignedAt(), true, copyTime(c.RedeemedAt()),
		stored.Metadata(), stored.CreatedAt(), c.UpdatedAt())
	return nil
}

func (r *CouponRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.coupons[id]; !ok {
		return false, nil
	}
	delete(r.s.coupons, id)
	return true, nil
}

func (r *CouponRepo) CountByCampaign(_ context.Context, campaignID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, c := range r.s.coupons {
		if c.CampaignID() != nil && *c.CampaignID() == campaignID {
			n++
		}
	}
	return n, nil
}

func (r *CouponRepo) CountByAssignee(_ context.Context, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, c := range r.s.coupons {
		if c.IsAssignedTo(userID) {
			n++
		}
	}
	return n, nil
}

// MustCoupon returns the stored coupon or panics. For assertions in tests.
func (r *CouponRepo) MustCoupon(id int64) *coupon.Coupon {
	c, err := r.FindByID(context.Background(), id)
	if err != nil {
		panic(fmt.Sprintf("coupon %d: %v", id, err))
	}
	return c
}
