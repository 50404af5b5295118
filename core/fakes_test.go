package core

import (
	"context"
	"strings"
)

// In-memory repositories backing router and service tests.

type fakeAccountRepo struct {
	nextID   int64
	accounts map[int64]AccountRecord
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[int64]AccountRecord{}}
}

func (f *fakeAccountRepo) FindByEmail(_ context.Context, email string) (*AccountRecord, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			found := a
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeAccountRepo) FindByID(_ context.Context, id int64) (*AccountRecord, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (f *fakeAccountRepo) FindByUsernameOrEmail(_ context.Context, username, email string) (*AccountRecord, error) {
	for _, a := range f.accounts {
		if a.Username == username || a.Email == email {
			found := a
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeAccountRepo) Create(_ context.Context, username, email, passwordHash string) (int64, error) {
	for _, a := range f.accounts {
		if a.Username == username || a.Email == email {
			return 0, ErrDuplicate
		}
	}
	f.nextID++
	f.accounts[f.nextID] = AccountRecord{ID: f.nextID, Username: username, Email: email, PasswordHash: passwordHash}
	return f.nextID, nil
}

func (f *fakeAccountRepo) Update(_ context.Context, id int64, username, email, passwordHash string) error {
	if _, ok := f.accounts[id]; !ok {
		return ErrNotFound
	}
	for otherID, a := range f.accounts {
		if otherID != id && (a.Username == username || a.Email == email) {
			return ErrDuplicate
		}
	}
	f.accounts[id] = AccountRecord{ID: id, Username: username, Email: email, PasswordHash: passwordHash}
	return nil
}

func (f *fakeAccountRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(f.accounts, id)
	return nil
}

func (f *fakeAccountRepo) List(_ context.Context) ([]AccountPublic, error) {
	items := []AccountPublic{}
	for id := int64(1); id <= f.nextID; id++ {
		if a, ok := f.accounts[id]; ok {
			items = append(items, AccountPublic{ID: a.ID, Username: a.Username, Email: a.Email})
		}
	}
	return items, nil
}

type fakeNovelistRepo struct {
	nextID    int64
	novelists map[int64]NovelistRecord
}

func newFakeNovelistRepo() *fakeNovelistRepo {
	return &fakeNovelistRepo{novelists: map[int64]NovelistRecord{}}
}

func (f *fakeNovelistRepo) Create(_ context.Context, name string) (*NovelistRecord, error) {
	for _, n := range f.novelists {
		if n.Name == name {
			return nil, ErrDuplicate
		}
	}
	f.nextID++
	n := NovelistRecord{ID: f.nextID, Name: name}
	f.novelists[n.ID] = n
	return &n, nil
}

func (f *fakeNovelistRepo) Get(_ context.Context, id int64) (*NovelistRecord, error) {
	n, ok := f.novelists[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &n, nil
}

func (f *fakeNovelistRepo) FindByName(_ context.Context, name string) (*NovelistRecord, error) {
	for _, n := range f.novelists {
		if n.Name == name {
			found := n
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeNovelistRepo) Update(_ context.Context, id int64, name string) (*NovelistRecord, error) {
	if _, ok := f.novelists[id]; !ok {
		return nil, ErrNotFound
	}
	n := NovelistRecord{ID: id, Name: name}
	f.novelists[id] = n
	return &n, nil
}

func (f *fakeNovelistRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.novelists[id]; !ok {
		return ErrNotFound
	}
	delete(f.novelists, id)
	return nil
}

func (f *fakeNovelistRepo) List(_ context.Context, name string, page, limit int) ([]NovelistRecord, error) {
	all := []NovelistRecord{}
	for id := int64(1); id <= f.nextID; id++ {
		n, ok := f.novelists[id]
		if !ok {
			continue
		}
		if name != "" && !strings.Contains(n.Name, name) {
			continue
		}
		all = append(all, n)
	}
	return paginate(all, page, limit), nil
}

type fakeBookRepo struct {
	nextID int64
	books  map[int64]BookRecord
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{books: map[int64]BookRecord{}}
}

func (f *fakeBookRepo) Create(_ context.Context, title string, year int, novelistID int64) (*BookRecord, error) {
	for _, b := range f.books {
		if b.Title == title {
			return nil, ErrDuplicate
		}
	}
	f.nextID++
	b := BookRecord{ID: f.nextID, Title: title, Year: year, NovelistID: novelistID}
	f.books[b.ID] = b
	return &b, nil
}

func (f *fakeBookRepo) Get(_ context.Context, id int64) (*BookRecord, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (f *fakeBookRepo) FindByTitle(_ context.Context, title string) (*BookRecord, error) {
	for _, b := range f.books {
		if b.Title == title {
			found := b
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeBookRepo) Update(_ context.Context, id int64, in BookUpdateInput) (*BookRecord, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	if in.Title != nil {
		b.Title = *in.Title
	}
	if in.Year != nil {
		b.Year = *in.Year
	}
	if in.NovelistID != nil {
		b.NovelistID = *in.NovelistID
	}
	f.books[id] = b
	return &b, nil
}

func (f *fakeBookRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.books[id]; !ok {
		return ErrNotFound
	}
	delete(f.books, id)
	return nil
}

func (f *fakeBookRepo) List(_ context.Context, title string, year, page, limit int) ([]BookRecord, error) {
	all := []BookRecord{}
	for id := int64(1); id <= f.nextID; id++ {
		b, ok := f.books[id]
		if !ok {
			continue
		}
		if title != "" && !strings.Contains(b.Title, title) {
			continue
		}
		if year != 0 && b.Year != year {
			continue
		}
		all = append(all, b)
	}
	return paginate(all, page, limit), nil
}

func paginate[T any](items []T, page, limit int) []T {
	offset := (page - 1) * limit
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
