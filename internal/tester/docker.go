package tester

import (
	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"
)

// SetupDocker starts a postgres container for integration runs against
// the production database engine. The returned func purges it.
func SetupDocker() (func(), error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		logrus.Fatalf("Could not construct pool: %s", err)
	}

	// uses pool to try to connect to Docker
	err = pool.Client.Ping()
	if err != nil {
		logrus.Fatalf("Could not connect to Docker: %s", err)
	}

	// run database
	db, err := pool.Run("postgres", "16", []string{
		"POSTGRES_USER=intake",
		"POSTGRES_PASSWORD=intake",
		"POSTGRES_DB=intake",
	})
	if err != nil {
		logrus.Fatalf("Could not start resource: %s", err)
	}

	purge := func() {
		if err := pool.Purge(db); err != nil {
			logrus.Fatalf("Could not purge resource: %s", err)
		}
	}

	return purge, nil
}
