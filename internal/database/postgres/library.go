package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/library"
)

var (
	photoColumns  = []string{"id", "title", "taken_at", "location", "description", "tags", "persons", "album_id", "content", "version"}
	personColumns = []string{"id", "name", "avatar", "version"}
	albumColumns  = []string{"id", "name", "description", "cover_photo_id", "version"}
	faceColumns   = []string{"id", "photo_id", "person_id", "box_x", "box_y", "box_width", "box_height", "score", "embedding", "version"}
)

var tableOf = map[library.Kind]string{
	library.KindPhoto:  "photos",
	library.KindPerson: "persons",
	library.KindAlbum:  "albums",
	library.KindFace:   "faces",
}

// LibraryRepository persists library records in PostgreSQL.
type LibraryRepository struct {
	pool *Pool
}

// NewLibraryRepository creates a repository on top of pool.
func NewLibraryRepository(pool *Pool) *LibraryRepository {
	return &LibraryRepository{pool: pool}
}

// LoadSnapshot reads all four tables concurrently.
func (r *LibraryRepository) LoadSnapshot(ctx context.Context) (library.Snapshot, error) {
	var snap library.Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		snap.Photos, err = r.loadPhotos(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Persons, err = r.loadPersons(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Albums, err = r.loadAlbums(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Faces, err = r.loadFaces(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return library.Snapshot{}, err
	}
	return snap, nil
}

func (r *LibraryRepository) loadPhotos(ctx context.Context) ([]library.Photo, error) {
	rows, err := r.pool.query(ctx, psql.Select(photoColumns...).From("photos").OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("query photos: %w", err)
	}
	defer rows.Close()

	var photos []library.Photo
	for rows.Next() {
		var (
			p       library.Photo
			albumID sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.TakenAt, &p.Location, &p.Description,
			pq.Array(&p.Tags), pq.Array(&p.Persons), &albumID, &p.Content, &p.Version); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		p.AlbumID = albumID.String
		p.Tags = nilIfEmpty(p.Tags)
		p.Persons = nilIfEmpty(p.Persons)
		p.TakenAt = p.TakenAt.UTC()
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photos: %w", err)
	}
	return photos, nil
}

func (r *LibraryRepository) loadPersons(ctx context.Context) ([]library.Person, error) {
	rows, err := r.pool.query(ctx, psql.Select(personColumns...).From("persons").OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer rows.Close()

	var persons []library.Person
	for rows.Next() {
		var p library.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Avatar, &p.Version); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return persons, nil
}

func (r *LibraryRepository) loadAlbums(ctx context.Context) ([]library.Album, error) {
	rows, err := r.pool.query(ctx, psql.Select(albumColumns...).From("albums").OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("query albums: %w", err)
	}
	defer rows.Close()

	var albums []library.Album
	for rows.Next() {
		var (
			a     library.Album
			cover sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &cover, &a.Version); err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		a.CoverPhotoID = cover.String
		albums = append(albums, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}
	return albums, nil
}

func (r *LibraryRepository) loadFaces(ctx context.Context) ([]library.Face, error) {
	rows, err := r.pool.query(ctx, psql.Select(faceColumns...).From("faces").OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	var faces []library.Face
	for rows.Next() {
		var (
			f         library.Face
			personID  sql.NullString
			embedding *pgvector.Vector
		)
		if err := rows.Scan(&f.ID, &f.PhotoID, &personID, &f.Box.X, &f.Box.Y, &f.Box.Width, &f.Box.Height,
			&f.Score, &embedding, &f.Version); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		f.PersonID = personID.String
		if embedding != nil {
			f.Embedding = embedding.Slice()
		}
		faces = append(faces, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

// Counts returns the number of rows per table.
func (r *LibraryRepository) Counts(ctx context.Context) (library.Stats, error) {
	var stats library.Stats
	targets := map[string]*int{
		"photos":  &stats.Photos,
		"persons": &stats.Persons,
		"albums":  &stats.Albums,
		"faces":   &stats.Faces,
	}
	for table, dst := range targets {
		q, args, err := psql.Select("COUNT(*)").From(table).ToSql()
		if err != nil {
			return library.Stats{}, fmt.Errorf("building count query: %w", err)
		}
		if err := r.pool.db.QueryRowContext(ctx, q, args...).Scan(dst); err != nil {
			return library.Stats{}, fmt.Errorf("count %s: %w", table, err)
		}
	}
	return stats, nil
}

// ApplyChanges writes changes in order inside one transaction.
func (r *LibraryRepository) ApplyChanges(ctx context.Context, changes []library.Change) error {
	if len(changes) == 0 {
		return nil
	}
	return r.pool.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range changes {
			if err := applyChange(ctx, tx, c); err != nil {
				return fmt.Errorf("%s %s %s: %w", c.Op, c.Kind, c.ID, classify(err))
			}
		}
		return nil
	})
}

func applyChange(ctx context.Context, tx *sql.Tx, c library.Change) error {
	if c.Op == library.OpDelete {
		table, ok := tableOf[c.Kind]
		if !ok {
			return fmt.Errorf("unknown kind %q", c.Kind)
		}
		return exec(ctx, tx, psql.Delete(table).Where(sq.Eq{"id": c.ID}))
	}

	switch v := c.After.(type) {
	case library.Photo:
		return exec(ctx, tx, upsert(insertPhoto(v), photoColumns))
	case library.Person:
		return exec(ctx, tx, upsert(insertPerson(v), personColumns))
	case library.Album:
		return exec(ctx, tx, upsert(insertAlbum(v), albumColumns))
	case library.Face:
		return exec(ctx, tx, upsert(insertFace(v), faceColumns))
	default:
		return fmt.Errorf("%w: unsupported record %T", database.ErrRejected, c.After)
	}
}

// SaveSnapshot truncates all tables and writes snap.
func (r *LibraryRepository) SaveSnapshot(ctx context.Context, snap library.Snapshot, progress func()) error {
	tick := func() {
		if progress != nil {
			progress()
		}
	}

	return r.pool.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "TRUNCATE photos, persons, albums, faces"); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
		for _, p := range snap.Persons {
			if err := exec(ctx, tx, insertPerson(p)); err != nil {
				return fmt.Errorf("insert person %s: %w", p.ID, err)
			}
			tick()
		}
		for _, a := range snap.Albums {
			if err := exec(ctx, tx, insertAlbum(a)); err != nil {
				return fmt.Errorf("insert album %s: %w", a.ID, err)
			}
			tick()
		}
		for _, p := range snap.Photos {
			if err := exec(ctx, tx, insertPhoto(p)); err != nil {
				return fmt.Errorf("insert photo %s: %w", p.ID, err)
			}
			tick()
		}
		for _, f := range snap.Faces {
			if err := exec(ctx, tx, insertFace(f)); err != nil {
				return fmt.Errorf("insert face %s: %w", f.ID, err)
			}
			tick()
		}
		return nil
	})
}

// upsert turns an insert into an insert-or-replace keyed on id.
func upsert(ins sq.InsertBuilder, columns []string) sq.InsertBuilder {
	suffix := "ON CONFLICT (id) DO UPDATE SET "
	for i, col := range columns[1:] {
		if i > 0 {
			suffix += ", "
		}
		suffix += col + " = EXCLUDED." + col
	}
	return ins.Suffix(suffix + ", updated_at = NOW()")
}

func insertPhoto(p library.Photo) sq.InsertBuilder {
	return psql.Insert("photos").Columns(photoColumns...).Values(
		p.ID, p.Title, p.TakenAt, p.Location, p.Description,
		pq.Array(emptyIfNil(p.Tags)), pq.Array(emptyIfNil(p.Persons)),
		nullString(p.AlbumID), p.Content, p.Version,
	)
}

func insertPerson(p library.Person) sq.InsertBuilder {
	return psql.Insert("persons").Columns(personColumns...).Values(p.ID, p.Name, p.Avatar, p.Version)
}

func insertAlbum(a library.Album) sq.InsertBuilder {
	return psql.Insert("albums").Columns(albumColumns...).Values(
		a.ID, a.Name, a.Description, nullString(a.CoverPhotoID), a.Version,
	)
}

func insertFace(f library.Face) sq.InsertBuilder {
	return psql.Insert("faces").Columns(faceColumns...).Values(
		f.ID, f.PhotoID, nullString(f.PersonID),
		f.Box.X, f.Box.Y, f.Box.Width, f.Box.Height,
		f.Score, embeddingValue(f.Embedding), f.Version,
	)
}

func embeddingValue(e []float32) any {
	if len(e) == 0 {
		return nil
	}
	v := pgvector.NewVector(e)
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// pq.Array encodes a nil slice as NULL, which the NOT NULL array columns reject.
func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// classify marks integrity and data errors as rejections. Retrying them cannot succeed.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "22", "23":
			return fmt.Errorf("%w: %w", database.ErrRejected, err)
		}
	}
	return err
}
