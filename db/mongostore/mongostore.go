// Package mongostore keeps users, songs and playlists in MongoDB. It has the
// same method set as the SQLite store in package db.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
	"github.com/tunebox/tunebox/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	client    *mongo.Client
	users     *mongo.Collection
	songs     *mongo.Collection
	playlists *mongo.Collection
}

// playlistDoc is the stored form: song references only
type playlistDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Owner       string    `bson:"owner"`
	Songs       []string  `bson:"songs"`
	IsPublic    bool      `bson:"isPublic"`
	CoverImage  string    `bson:"coverImage"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// Connect dials uri and checks the server is reachable
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	return &Store{
		client:    client,
		users:     db.Collection("users"),
		songs:     db.Collection("songs"),
		playlists: db.Collection("playlists"),
	}, nil
}

// Initialize creates the indexes the store relies on
func (s *Store) Initialize(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = s.playlists.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return err
	}

	_, err = s.songs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	return err
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes every collection. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	for _, c := range []*mongo.Collection{s.users, s.songs, s.playlists} {
		if err := c.Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt, user.UpdatedAt = now, now

	_, err := s.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrConflict
	}
	return err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

func (s *Store) findSongs(ctx context.Context, filter any, opts ...*options.FindOptions) ([]models.Song, error) {
	cur, err := s.songs.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	songs := []models.Song{}
	if err := cur.All(ctx, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

func (s *Store) ListSongs(ctx context.Context) ([]models.Song, error) {
	return s.findSongs(ctx, bson.M{}, newestFirst)
}

func (s *Store) GetSong(ctx context.Context, id string) (*models.Song, error) {
	var song models.Song
	err := s.songs.FindOne(ctx, bson.M{"_id": id}).Decode(&song)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &song, nil
}

// SearchSongs matches text literally and case-insensitively against
// title, artist and album
func (s *Store) SearchSongs(ctx context.Context, text string) ([]models.Song, error) {
	re := primitive.Regex{Pattern: regexp2.Escape(text), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"title": re},
		bson.M{"artist": re},
		bson.M{"album": re},
	}}
	return s.findSongs(ctx, filter, newestFirst)
}

func (s *Store) CountSongs(ctx context.Context) (int64, error) {
	return s.songs.CountDocuments(ctx, bson.M{})
}

// SeedSongs inserts songs when the collection is empty. Two concurrent
// seeds can both see an empty collection; the catalog is seeded by hand.
func (s *Store) SeedSongs(ctx context.Context, songs []models.Song) (int, error) {
	n, err := s.CountSongs(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	if err := s.InsertSongs(ctx, songs); err != nil {
		return 0, err
	}
	return len(songs), nil
}

func (s *Store) InsertSongs(ctx context.Context, songs []models.Song) error {
	now := time.Now().UTC()
	docs := make([]any, len(songs))
	for i := range songs {
		song := &songs[i]
		if song.ID == "" {
			song.ID = uuid.NewString()
		}
		if song.CoverImage == "" {
			song.CoverImage = models.DefaultSongCover
		}
		song.CreatedAt, song.UpdatedAt = now, now
		docs[i] = song
	}
	_, err := s.songs.InsertMany(ctx, docs)
	return err
}

func (s *Store) CreatePlaylist(ctx context.Context, p *models.Playlist) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CoverImage == "" {
		p.CoverImage = models.DefaultPlaylistCover
	}
	p.CreatedAt, p.UpdatedAt = now, now
	p.SongIDs = []string{}
	p.Songs = []models.Song{}

	_, err := s.playlists.InsertOne(ctx, playlistDoc{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Owner:       p.Owner.ID,
		Songs:       p.SongIDs,
		IsPublic:    p.IsPublic,
		CoverImage:  p.CoverImage,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return err
}

// populate resolves song references in stored order and the owner name
func (s *Store) populate(ctx context.Context, doc playlistDoc) (*models.Playlist, error) {
	p := &models.Playlist{
		ID:          doc.ID,
		Name:        doc.Name,
		Description: doc.Description,
		Owner:       models.PlaylistOwner{ID: doc.Owner},
		IsPublic:    doc.IsPublic,
		CoverImage:  doc.CoverImage,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		SongIDs:     []string{},
		Songs:       []models.Song{},
	}

	if len(doc.Songs) > 0 {
		found, err := s.findSongs(ctx, bson.M{"_id": bson.M{"$in": doc.Songs}})
		if err != nil {
			return nil, err
		}
		byID := make(map[string]models.Song, len(found))
		for _, song := range found {
			byID[song.ID] = song
		}
		for _, id := range doc.Songs {
			if song, ok := byID[id]; ok {
				p.SongIDs = append(p.SongIDs, id)
				p.Songs = append(p.Songs, song)
			}
		}
	}

	owner, err := s.GetUserByID(ctx, doc.Owner)
	if err != nil {
		return nil, err
	}
	if owner != nil {
		p.Owner.Username = owner.Username
	}
	return p, nil
}

func (s *Store) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	var doc playlistDoc
	err := s.playlists.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, doc)
}

func (s *Store) ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	cur, err := s.playlists.Find(ctx, bson.M{"owner": ownerID}, newestFirst)
	if err != nil {
		return nil, err
	}
	var docs []playlistDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(docs))
	for _, doc := range docs {
		p, err := s.populate(ctx, doc)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *p)
	}
	return playlists, nil
}

func owned(ownerID, id string) bson.M {
	return bson.M{"_id": id, "owner": ownerID}
}

func (s *Store) UpdatePlaylist(ctx context.Context, ownerID, id string, patch models.PlaylistPatch) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.IsPublic != nil {
		set["isPublic"] = *patch.IsPublic
	}

	res, err := s.playlists.UpdateOne(ctx, owned(ownerID, id), bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePlaylist(ctx context.Context, ownerID, id string) error {
	res, err := s.playlists.DeleteOne(ctx, owned(ownerID, id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AddSongToPlaylist appends with a single conditional update so two
// concurrent adds of the same song cannot both land
func (s *Store) AddSongToPlaylist(ctx context.Context, ownerID, playlistID, songID string) error {
	filter := owned(ownerID, playlistID)
	filter["songs"] = bson.M{"$ne": songID}

	res, err := s.playlists.UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{"songs": songID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := s.playlists.CountDocuments(ctx, owned(ownerID, playlistID))
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return models.ErrConflict
}

func (s *Store) RemoveSongFromPlaylist(ctx context.Context, ownerID, playlistID, songID string) error {
	res, err := s.playlists.UpdateOne(ctx, owned(ownerID, playlistID), bson.M{
		"$pull": bson.M{"songs": songID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
