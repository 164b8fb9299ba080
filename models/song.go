package models

import "time"

const DefaultSongCover = "/images/default-cover.jpg"

// Song is a catalog entry. Songs are created by seeding and never updated
// through the API.
type Song struct {
	ID         string    `json:"_id" bson:"_id"`
	Title      string    `json:"title" bson:"title"`
	Artist     string    `json:"artist" bson:"artist"`
	Album      string    `json:"album,omitempty" bson:"album,omitempty"`
	Duration   int       `json:"duration" bson:"duration"` // seconds
	AudioURL   string    `json:"audioUrl" bson:"audioUrl"`
	CoverImage string    `json:"coverImage" bson:"coverImage"`
	Genre      string    `json:"genre,omitempty" bson:"genre,omitempty"`
	Year       int       `json:"year,omitempty" bson:"year,omitempty"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// SampleSongs is the catalog used by the seed operation.
func SampleSongs() []Song {
	return []Song{
		{Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera", Duration: 355, AudioURL: "/audio/sample1.mp3", Genre: "Rock", Year: 1975},
		{Title: "Imagine", Artist: "John Lennon", Album: "Imagine", Duration: 183, AudioURL: "/audio/sample2.mp3", Genre: "Rock", Year: 1971},
		{Title: "Hotel California", Artist: "Eagles", Album: "Hotel California", Duration: 391, AudioURL: "/audio/sample3.mp3", Genre: "Rock", Year: 1976},
		{Title: "Billie Jean", Artist: "Michael Jackson", Album: "Thriller", Duration: 294, AudioURL: "/audio/sample4.mp3", Genre: "Pop", Year: 1983},
		{Title: "Smells Like Teen Spirit", Artist: "Nirvana", Album: "Nevermind", Duration: 301, AudioURL: "/audio/sample5.mp3", Genre: "Grunge", Year: 1991},
	}
}
