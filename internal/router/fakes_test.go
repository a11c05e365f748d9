package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/pitchfeed/internal/models"
	"github.com/anonto42/pitchfeed/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uint]*models.User{}}
}

func (f *fakeUsers) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (f *fakeUsers) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.FirebaseUID != "" && u.FirebaseUID == uid })
}

func (f *fakeUsers) UpdateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

type fakePosts struct {
	mu    sync.Mutex
	posts []models.Post // newest first
	clock time.Time
}

func newFakePosts() *fakePosts {
	return &fakePosts{clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakePosts) CreatePost(ctx context.Context, post *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Minute)
	post.ID = primitive.NewObjectID()
	post.CreatedAt = f.clock
	post.UpdatedAt = f.clock
	f.posts = append([]models.Post{*post}, f.posts...)
	return nil
}

func (f *fakePosts) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, repositories.ErrInvalidPostID
	}
	for i := range f.posts {
		if f.posts[i].ID.Hex() == id {
			cp := f.posts[i]
			return &cp, nil
		}
	}
	return nil, repositories.ErrPostNotFound
}

func (f *fakePosts) GetPostsByAuthor(ctx context.Context, authorID uint, skip, limit int64) ([]models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Post{}
	for _, p := range f.posts {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	return window(out, skip, limit), nil
}

func (f *fakePosts) ListFeed(ctx context.Context, offset, limit int64) ([]models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return window(append([]models.Post(nil), f.posts...), offset, limit), nil
}

func (f *fakePosts) IncrementBoostCount(ctx context.Context, id string) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.posts {
		if f.posts[i].ID.Hex() == id {
			f.posts[i].BoostCount++
			cp := f.posts[i]
			return &cp, nil
		}
	}
	return nil, repositories.ErrPostNotFound
}

func window(posts []models.Post, skip, limit int64) []models.Post {
	if skip >= int64(len(posts)) {
		return []models.Post{}
	}
	posts = posts[skip:]
	if limit > 0 && limit < int64(len(posts)) {
		posts = posts[:limit]
	}
	return posts
}

type fakeInvestments struct {
	mu    sync.Mutex
	seq   int
	byID  map[string]*models.Investment
	clock time.Time
}

func newFakeInvestments() *fakeInvestments {
	return &fakeInvestments{byID: map[string]*models.Investment{}, clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeInvestments) CreateInvestment(_ context.Context, inv *models.Investment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.clock = f.clock.Add(time.Minute)
	if inv.ID == "" {
		inv.ID = fmt.Sprintf("inv-%d", f.seq)
	}
	inv.CreatedAt = f.clock
	cp := *inv
	f.byID[inv.ID] = &cp
	return nil
}

func (f *fakeInvestments) GetInvestmentByID(_ context.Context, id string) (*models.Investment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv, ok := f.byID[id]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, repositories.ErrInvestmentNotFound
}

func (f *fakeInvestments) UpdateInvestment(_ context.Context, inv *models.Investment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[inv.ID]; !ok {
		return errors.New("no such investment")
	}
	cp := *inv
	f.byID[inv.ID] = &cp
	return nil
}

func (f *fakeInvestments) GetInvestmentsByInvestor(_ context.Context, investorID uint) ([]models.Investment, error) {
	return f.filter(func(inv *models.Investment) bool { return inv.InvestorID == investorID }), nil
}

func (f *fakeInvestments) GetInvestmentsByPostIDs(_ context.Context, postIDs []string) ([]models.Investment, error) {
	set := map[string]bool{}
	for _, id := range postIDs {
		set[id] = true
	}
	return f.filter(func(inv *models.Investment) bool { return set[inv.PostID] }), nil
}

func (f *fakeInvestments) filter(match func(*models.Investment) bool) []models.Investment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Investment{}
	for _, inv := range f.byID {
		if match(inv) {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type fakeVerifier struct {
	tokens map[string]*auth.Token
}

func (f *fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := f.tokens[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("token rejected")
}
