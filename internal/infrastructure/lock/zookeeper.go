package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/jhoicas/device-stock-api/internal/application/inventory"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

var _ inventory.MutualExclusion = (*ZooKeeperMutex)(nil)

const zkLockRoot = "/device_stock_locks"

// ZooKeeperMutex receta de lock con nodos efímeros secuenciales: cada participante crea
// un nodo bajo la ruta de la clave y espera a que desaparezca su predecesor inmediato.
// Si la sesión se pierde, ZooKeeper borra el nodo y el lock se libera solo.
type ZooKeeperMutex struct {
	conn *zk.Conn
	wait time.Duration
	acl  []zk.ACL
	log  *logger.Logger
}

// NewZooKeeperMutex conecta con el ensemble y asegura el nodo raíz.
func NewZooKeeperMutex(servers []string, sessionTimeout, wait time.Duration, log *logger.Logger) (*ZooKeeperMutex, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("conectar zookeeper: %w", err)
	}
	m := &ZooKeeperMutex{conn: conn, wait: wait, acl: zk.WorldACL(zk.PermAll), log: log.Named("zk_lock")}
	if err := m.ensure(zkLockRoot); err != nil {
		conn.Close()
		return nil, err
	}
	return m, nil
}

// Close cierra la sesión; los nodos efímeros pendientes desaparecen.
func (m *ZooKeeperMutex) Close() {
	m.conn.Close()
}

func (m *ZooKeeperMutex) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	path := zkLockRoot + "/" + strings.ReplaceAll(key, "/", "_")
	if err := m.ensure(path); err != nil {
		return unavailable(key, err)
	}

	node, err := m.conn.CreateProtectedEphemeralSequential(path+"/lock-", []byte{}, m.acl)
	if err != nil {
		return unavailable(key, fmt.Errorf("crear nodo secuencial: %w", err))
	}

	acquireCtx, cancel := acquireContext(ctx, m.wait)
	defer cancel()
	if err := m.awaitTurn(acquireCtx, path, node); err != nil {
		m.deleteNode(node)
		return unavailable(key, err)
	}

	defer m.deleteNode(node)
	return fn(ctx)
}

// awaitTurn bloquea hasta que node sea el de menor secuencia bajo path.
func (m *ZooKeeperMutex) awaitTurn(ctx context.Context, path, node string) error {
	mine := strings.TrimPrefix(node, path+"/")
	for {
		children, _, err := m.conn.Children(path)
		if err != nil {
			return fmt.Errorf("listar nodos: %w", err)
		}
		sort.Slice(children, func(i, j int) bool { return sequenceOf(children[i]) < sequenceOf(children[j]) })

		idx := -1
		for i, child := range children {
			if child == mine {
				idx = i
				break
			}
		}
		switch {
		case idx < 0:
			return errors.New("nodo propio no encontrado (sesión expirada)")
		case idx == 0:
			return nil
		}

		exists, _, events, err := m.conn.ExistsW(path + "/" + children[idx-1])
		if err != nil {
			return fmt.Errorf("vigilar predecesor: %w", err)
		}
		if !exists {
			continue
		}
		select {
		case <-events:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *ZooKeeperMutex) ensure(path string) error {
	exists, _, err := m.conn.Exists(path)
	if err != nil {
		return fmt.Errorf("consultar %s: %w", path, err)
	}
	if exists {
		return nil
	}
	if _, err := m.conn.Create(path, []byte{}, 0, m.acl); err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return fmt.Errorf("crear %s: %w", path, err)
	}
	return nil
}

func (m *ZooKeeperMutex) deleteNode(node string) {
	if err := m.conn.Delete(node, -1); err != nil && !errors.Is(err, zk.ErrNoNode) {
		m.log.Error().Err(err).Str("node", node).Msg("no se pudo borrar el nodo de lock")
	}
}

// sequenceOf extrae el sufijo secuencial; los nodos protegidos llevan un prefijo
// aleatorio, así que ordenar por nombre no sirve.
func sequenceOf(name string) int64 {
	i := strings.LastIndex(name, "-")
	if i < 0 {
		return -1
	}
	n, err := strconv.ParseInt(name[i+1:], 10, 64)
	if err != nil {
		return -1
	}
	return n
}
