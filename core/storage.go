package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/stevegt/goadapt"
	"go.etcd.io/bbolt"
)

// The db is a single bbolt file holding one JSON-serialized state blob.
var (
	stateBucket = []byte("parley")
	stateKey    = []byte("state")
)

// Init creates a parley database in the given root directory.
func Init(rootdir string) (g *Parley, err error) {
	defer Return(&err)
	g, err = InitNamed(rootdir, ".parley")
	return
}

// InitNamed creates a named parley database in the given root
// directory.  The new state starts with one empty chat so the view
// never sees a zero-session store.
func InitNamed(rootdir, name string) (g *Parley, err error) {
	defer Return(&err)
	// ensure rootdir is absolute and exists
	rootdir, err = filepath.Abs(rootdir)
	Ck(err)
	_, err = os.Stat(rootdir)
	Ck(err)
	// ensure there is no existing db
	dbpath := filepath.Join(rootdir, name)
	_, err = os.Stat(dbpath)
	if err == nil {
		err = fmt.Errorf("db already exists at %q", dbpath)
		return
	}
	g = &Parley{
		Version: version,
		Model:   DefaultModel,
		Theme:   "light",
	}
	err = g.setup(g.Model)
	Ck(err)
	g.dbpath = dbpath
	g.db, err = bbolt.Open(dbpath, 0600, nil)
	Ck(err)
	g.NewChat()
	err = g.Save()
	Ck(err)
	return
}

// Load loads a parley database from the current or any parent
// directory.
func Load() (g *Parley, migrated bool, oldver, newver string, err error) {
	defer Return(&err)

	// find the .parley file in the current or any parent directory
	dbfnbase := ".parley"
	dbpath := ""
	for level := 0; level < 99; level++ {
		path := strings.Repeat("../", level) + dbfnbase
		if _, err := os.Stat(path); err == nil {
			dbpath = path
			break
		}
	}
	if dbpath == "" {
		err = fmt.Errorf("no db found -- run init first")
		return
	}
	g, migrated, oldver, newver, err = LoadFrom(dbpath)
	Ck(err)
	return
}

// LoadFrom loads a parley database from a given path.  An absent or
// corrupt state blob yields a defaulted state rather than an error, so
// a first run or a damaged db degrades to an empty client.
func LoadFrom(dbpath string) (g *Parley, migrated bool, oldver, newver string, err error) {
	defer Return(&err)
	g = &Parley{}
	g.dbpath, err = filepath.Abs(dbpath)
	Ck(err)
	g.db, err = bbolt.Open(g.dbpath, 0600, nil)
	Ck(err)

	var buf []byte
	err = g.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(stateBucket)
		if b == nil {
			return nil
		}
		v := b.Get(stateKey)
		if v == nil {
			return nil
		}
		buf = append(buf, v...)
		return nil
	})
	Ck(err)

	if buf != nil {
		jerr := json.Unmarshal(buf, g)
		if jerr != nil {
			Fpf(os.Stderr, "warning: corrupt state in %s, starting fresh: %v\n", g.dbpath, jerr)
			db, path := g.db, g.dbpath
			g = &Parley{Version: version, db: db, dbpath: path}
		}
	}
	if g.Version == "" && buf == nil {
		// first load of a fresh db file
		g.Version = version
	}
	// a send never survives a restart
	g.Sending = false

	migrated, oldver, newver, err = g.migrate()
	Ck(err)

	err = g.setup(g.Model)
	Ck(err)

	// restore the active-chat invariant
	if len(g.Chats) == 0 {
		g.NewChat()
	}
	if g.FindChat(g.ActiveChatID) == nil {
		g.ActiveChatID = g.Chats[0].ID
	}

	if migrated {
		// save the old db, then persist the migrated state
		var fn string
		fn, err = g.Backup()
		Ck(err)
		Debug("backup of old db saved to %s", fn)
		err = g.Save()
		Ck(err)
	}
	return
}

// Save writes the state as one JSON blob in a single transaction.
// Save is a full-state overwrite, called after every mutating
// operation.
func (g *Parley) Save() (err error) {
	defer Return(&err)
	Debug("saving parley db")
	g.mu.Lock()
	data, err := json.Marshal(g)
	g.mu.Unlock()
	Ck(err)
	err = g.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(stateBucket)
		if err != nil {
			return err
		}
		return b.Put(stateKey, data)
	})
	Ck(err)
	Debug(" done!")
	return
}

// Backup copies the db to a time-stamped backup file and returns the
// path.  The copy runs inside a read transaction so it is consistent
// even with the db open.
func (g *Parley) Backup() (backpath string, err error) {
	defer Return(&err)
	Assert(g.dbpath != "", "g.dbpath is empty")
	tmpdir := os.TempDir()
	deslashed := strings.Replace(g.dbpath, "/", "-", -1)
	backpath = fmt.Sprintf("%s/parley-backup-%s%s", tmpdir, time.Now().Format("20060102-150405"), deslashed)
	err = g.db.View(func(tx *bbolt.Tx) error {
		return tx.CopyFile(backpath, 0600)
	})
	Ck(err, "failed to backup %q to %q", g.dbpath, backpath)
	return
}

// Close waits for any detached title generation to finish, then closes
// the db.
func (g *Parley) Close() (err error) {
	defer Return(&err)
	g.titles.Wait()
	err = g.db.Close()
	Ck(err)
	return
}
