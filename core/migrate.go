package core

import (
	"fmt"
	"os"

	. "github.com/stevegt/goadapt"
	"github.com/stevegt/semver"
)

// migrate migrates the current parley database from an older version
// to the current version.
func (g *Parley) migrate() (migrated bool, was, now string, err error) {
	defer Return(&err)

	was = g.Version
	now = g.Version

	// set default version
	if g.Version == "" {
		g.Version = "0.1.0"
	}

	// loop until migrations are done
	for {

		// check if migration is necessary
		var dbver, codever *semver.Version
		dbver, err = semver.Parse([]byte(g.Version))
		Ck(err)
		codever, err = semver.Parse([]byte(version))
		Ck(err)
		if semver.Cmp(dbver, codever) == 0 {
			// no migration necessary
			break
		}

		// see if db is newer version than code
		if semver.Cmp(dbver, codever) > 0 {
			// db is newer than code
			err = fmt.Errorf("parley db is version %s, but you're running version %s -- upgrade parley", g.Version, version)
			return
		}

		Fpf(os.Stderr, "migrating from %s to %s\n", g.Version, version)

		// if we get here, then dbver < codever
		_, minor, patch := semver.Upgrade(dbver, codever)
		Assert(patch, "patch should be true: %s -> %s", dbver, codever)

		// figure out what kind of migration we need to do
		if minor {
			// minor version changed; db migration necessary
			err = g.migrateOneVersion()
			Ck(err)
		} else {
			// only patch version changed; a patch version change is
			// just a code change, so just update the version number
			// in the db
			g.Version = version
		}

		migrated = true
	}

	now = g.Version
	return
}

// migrateOneVersion migrates the db from its current version to the
// next version.
func (g *Parley) migrateOneVersion() (err error) {
	defer Return(&err)
	switch g.Version {
	case "0.1.0":
		g.migrate_0_1_0_to_1_0_0()
	default:
		err = fmt.Errorf("don't know how to migrate from version %s", g.Version)
	}
	return
}

// migrate_0_1_0_to_1_0_0 folds the legacy single apiKey field into the
// per-provider APIKeys map, under the slot owned by the default
// (Google) provider.  This is a one-time, one-directional upgrade: the
// legacy field is cleared afterward and the rule never re-applies.
func (g *Parley) migrate_0_1_0_to_1_0_0() {
	if g.APIKeys == nil {
		g.APIKeys = make(map[string]string)
	}
	if g.APIKey != "" && g.APIKeys["geminiApiKey"] == "" {
		g.APIKeys["geminiApiKey"] = g.APIKey
	}
	g.APIKey = ""
	g.Version = "1.0.0"
}
