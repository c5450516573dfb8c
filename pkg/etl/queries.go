package etl

import "fmt"

// Catalog is the ordered set of SQL statements the external ETL runner
// executes against the warehouse: drop everything, create the staging and
// dimensional tables, bulk-load the staging tables from S3, then transform
// staging rows into the star schema. Statement text is fixed; only the two
// COPY statements are interpolated, once, at construction.
type Catalog struct {
	DropTables   []string
	CreateTables []string
	CopyTables   []string
	InsertTables []string
}

// Params are the config values interpolated into the COPY statements.
type Params struct {
	LogData     string
	LogJSONPath string
	SongData    string
	RoleARN     string
}

// DROP TABLES

const (
	stagingEventsTableDrop = "DROP TABLE IF EXISTS staging_events"
	stagingSongsTableDrop  = "DROP TABLE IF EXISTS staging_songs"
	songplayTableDrop      = "DROP TABLE IF EXISTS songplays"
	userTableDrop          = "DROP TABLE IF EXISTS users"
	songTableDrop          = "DROP TABLE IF EXISTS songs"
	artistTableDrop        = "DROP TABLE IF EXISTS artists"
	timeTableDrop          = "DROP TABLE IF EXISTS time"
)

// CREATE TABLES

const stagingEventsTableCreate = `
CREATE TABLE IF NOT EXISTS staging_events(
    artist varchar,
    auth varchar,
    firstName varchar,
    gender varchar,
    itemInSession int,
    lastName varchar,
    length float,
    level varchar,
    location varchar,
    method varchar,
    page varchar,
    registration float,
    sessionId int,
    song varchar,
    status int,
    ts bigint,
    userAgent varchar,
    userId int
)
`

const stagingSongsTableCreate = `
CREATE TABLE IF NOT EXISTS staging_songs(
    num_songs int,
    artist_id varchar,
    artist_latitude float,
    artist_longitude float,
    artist_location varchar,
    artist_name varchar,
    song_id varchar,
    title varchar,
    duration float,
    year int
)
`

const songplayTableCreate = `
CREATE TABLE IF NOT EXISTS songplays(
    songplay_id bigint IDENTITY(0,1) PRIMARY KEY,
    start_time timestamp NOT NULL,
    user_id int NOT NULL,
    level varchar NOT NULL,
    song_id varchar NOT NULL,
    artist_id varchar NOT NULL,
    session_id int,
    location varchar,
    user_agent varchar,
    FOREIGN KEY (start_time) REFERENCES time (start_time),
    FOREIGN KEY (artist_id) REFERENCES artists (artist_id),
    FOREIGN KEY (user_id) REFERENCES users (user_id),
    FOREIGN KEY (song_id) REFERENCES songs (song_id)
)
`

const userTableCreate = `
CREATE TABLE IF NOT EXISTS users (
    user_id int PRIMARY KEY,
    first_name varchar NOT NULL,
    last_name varchar NOT NULL,
    gender varchar(1) NOT NULL,
    level varchar NOT NULL
)
`

const songTableCreate = `
CREATE TABLE IF NOT EXISTS songs (
    song_id varchar PRIMARY KEY,
    title varchar NOT NULL,
    artist_id varchar NOT NULL,
    year int,
    duration numeric,
    FOREIGN KEY (artist_id) REFERENCES artists (artist_id)
)
`

const artistTableCreate = `
CREATE TABLE IF NOT EXISTS artists (
    artist_id varchar PRIMARY KEY,
    name varchar NOT NULL,
    location varchar,
    latitude float,
    longitude float
)
`

const timeTableCreate = `
CREATE TABLE IF NOT EXISTS time (
    start_time timestamp PRIMARY KEY,
    hour int,
    day int,
    week int,
    month int,
    year int,
    weekday int
)
`

// STAGING TABLE COPY templates. Interpolated values: S3 path, role ARN, and
// for the events copy the JSONPath mapping file.

const stagingEventsCopyFmt = `
    copy staging_events
    from '%s'
    iam_role '%s'
    format as json '%s'
`

const stagingSongsCopyFmt = `
    copy staging_songs
    from '%s'
    iam_role '%s'
    json 'auto'
`

// FINAL TABLE INSERTs

const songplayTableInsert = `
INSERT INTO songplays (
    start_time, user_id, level, song_id,
    artist_id, session_id, location, user_agent)
SELECT
    DATEADD(ms, ts, '1970-01-01 00:00:00') AS start_time,
    events.userId as user_id,
    events.level,
    songs.song_id,
    songs.artist_id,
    events.sessionId AS session_id,
    events.location,
    events.userAgent AS user_agent
FROM staging_events events
JOIN staging_songs songs
ON (events.song = songs.title
AND events.length = songs.duration
AND events.artist = songs.artist_name)
WHERE events.page='NextSong';
`

const userTableInsert = `
INSERT INTO users (user_id, first_name, last_name, gender, level)
SELECT
    DISTINCT
    userId as user_id,
    firstName as first_name,
    lastName as last_name,
    gender,
    last_value(level) over (
            partition by userId
            rows between unbounded preceding and unbounded following)
FROM staging_events WHERE userId is NOT NULL;
`

const songTableInsert = `
INSERT INTO songs (song_id, title, artist_id, year, duration)
SELECT
    DISTINCT song_id,
    title,
    artist_id,
    year,
    duration
FROM staging_songs;
`

const artistTableInsert = `
INSERT INTO artists (artist_id, name, location, latitude, longitude)
SELECT
    DISTINCT artist_id,
    artist_name,
    artist_location,
    artist_latitude,
    artist_longitude
FROM staging_songs;
`

const timeTableInsert = `
INSERT INTO time (start_time, hour, day, week, month, year, weekday)
SELECT DISTINCT(DATEADD(ms, ts, '1970-01-01 00:00:00')) as start_time,
        EXTRACT (hour FROM start_time) AS hour,
        EXTRACT (day FROM start_time) AS day,
        EXTRACT (week FROM start_time) AS week,
        EXTRACT (month FROM start_time) AS month,
        EXTRACT (year FROM start_time) AS year,
        EXTRACT (weekday FROM start_time) AS weekday
FROM staging_events;
`

// NewCatalog builds the statement lists. Order matters: referenced tables are
// created before the tables holding their foreign keys, and dimension tables
// are populated before the fact table.
func NewCatalog(p Params) Catalog {
	return Catalog{
		DropTables: []string{
			stagingEventsTableDrop,
			stagingSongsTableDrop,
			songplayTableDrop,
			userTableDrop,
			songTableDrop,
			artistTableDrop,
			timeTableDrop,
		},
		CreateTables: []string{
			stagingEventsTableCreate,
			stagingSongsTableCreate,
			userTableCreate,
			artistTableCreate,
			songTableCreate,
			timeTableCreate,
			songplayTableCreate,
		},
		CopyTables: []string{
			fmt.Sprintf(stagingEventsCopyFmt, p.LogData, p.RoleARN, p.LogJSONPath),
			fmt.Sprintf(stagingSongsCopyFmt, p.SongData, p.RoleARN),
		},
		InsertTables: []string{
			userTableInsert,
			artistTableInsert,
			songTableInsert,
			timeTableInsert,
			songplayTableInsert,
		},
	}
}
