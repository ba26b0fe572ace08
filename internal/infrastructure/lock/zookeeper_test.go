package lock_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/device-stock-api/internal/infrastructure/lock"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

// Requieren un ensemble real: ZK_SERVERS=host:2181[,host:2181].
func newZooKeeperMutex(t *testing.T, wait time.Duration) *lock.ZooKeeperMutex {
	t.Helper()
	servers := os.Getenv("ZK_SERVERS")
	if servers == "" {
		t.Skip("ZK_SERVERS no definido")
	}
	m, err := lock.NewZooKeeperMutex(strings.Split(servers, ","), 5*time.Second, wait, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestZooKeeperMutex_ExclusionEntreSesiones(t *testing.T) {
	a := newZooKeeperMutex(t, 10*time.Second)
	b := newZooKeeperMutex(t, 10*time.Second)
	assertExclusion(t, "stock:zk-"+uuid.NewString()+":negro", a, b)
}

func TestZooKeeperMutex_ClaveOcupadaAgotaEspera(t *testing.T) {
	holder := newZooKeeperMutex(t, 5*time.Second)
	waiter := newZooKeeperMutex(t, 100*time.Millisecond)
	assertBusyKeyTimesOut(t, "stock:zk-"+uuid.NewString()+":azul", holder, waiter)
}

func TestZooKeeperMutex_LiberaTrasError(t *testing.T) {
	m := newZooKeeperMutex(t, time.Second)
	assertReleasedAfterError(t, "reservation:"+uuid.NewString(), m)
}
