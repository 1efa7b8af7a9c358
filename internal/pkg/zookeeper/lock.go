package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const (
	lockRoot = "/unieats_locks" // 所有分布式锁的根节点
)

// Conn 包装一个 ZooKeeper 会话
type Conn struct {
	conn *zk.Conn
}

// Connect 建立 ZooKeeper 会话。servers 形如 ["host1:2181", "host2:2181"]
func Connect(servers []string, sessionTimeout time.Duration) (*Conn, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}
	return &Conn{conn: conn}, nil
}

// Close 关闭会话，所有临时节点随之消失
func (c *Conn) Close() {
	c.conn.Close()
}

// ensurePath 确保一条持久路径存在
func (c *Conn) ensurePath(path string) error {
	exists, _, err := c.conn.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = c.conn.Create(path, []byte{}, 0, zk.WorldACL(zk.PermAll))
	if err != nil && err != zk.ErrNodeExists {
		return err
	}
	return nil
}

// DistributedLock 是针对某个资源的互斥锁，
// 基于临时顺序节点实现：序号最小者持锁，其余监听前驱节点
type DistributedLock struct {
	conn     *Conn
	path     string // 锁路径，例如 /unieats_locks/order-123
	lockNode string // 成功获取锁后自己创建的节点路径
}

// NewDistributedLock 创建一个新的分布式锁实例
func NewDistributedLock(conn *Conn, resourceID string) (*DistributedLock, error) {
	if err := conn.ensurePath(lockRoot); err != nil {
		return nil, fmt.Errorf("failed to ensure lock root: %w", err)
	}
	lockPath := lockRoot + "/" + resourceID
	if err := conn.ensurePath(lockPath); err != nil {
		return nil, fmt.Errorf("failed to ensure lock path %s: %w", lockPath, err)
	}
	return &DistributedLock{conn: conn, path: lockPath}, nil
}

// Lock 尝试获取锁，获取不到则阻塞等待，ctx 取消时放弃
func (l *DistributedLock) Lock(ctx context.Context) error {
	// 1. 在锁路径下创建一个临时顺序节点
	nodePath, err := l.conn.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte{}, zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath

	for {
		// 2. 列出所有竞争者并排序
		children, _, err := l.conn.conn.Children(l.path)
		if err != nil {
			return fmt.Errorf("failed to get children nodes: %w", err)
		}
		sort.Strings(children)

		// 3. 自己是最小节点则持锁成功
		myNodeName := strings.TrimPrefix(l.lockNode, l.path+"/")
		myIndex := -1
		for i, child := range children {
			if child == myNodeName {
				myIndex = i
				break
			}
		}
		if myIndex == 0 {
			return nil
		}
		if myIndex < 0 {
			return errors.New("own lock node disappeared")
		}

		// 4. 监听前一个节点，等它消失后重新竞争
		prevNode := l.path + "/" + children[myIndex-1]
		exists, _, eventChan, err := l.conn.conn.ExistsW(prevNode)
		if err != nil {
			return fmt.Errorf("failed to watch previous node: %w", err)
		}
		if !exists {
			continue
		}

		select {
		case event := <-eventChan:
			if event.Type == zk.EventNodeDeleted {
				continue
			}
		case <-ctx.Done():
			_ = l.Unlock()
			return ctx.Err()
		case <-time.After(30 * time.Second): // 防止死等
			_ = l.Unlock()
			return errors.New("timeout waiting for lock")
		}
	}
}

// Unlock 释放锁
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}

// Locker 以资源 ID 为粒度提供 WithLock 语义，
// 满足领域层对订单状态串行化的要求
type Locker struct {
	conn   *Conn
	prefix string
}

// NewLocker 创建一个带资源前缀的锁工厂，例如 prefix="order"
func NewLocker(conn *Conn, prefix string) *Locker {
	return &Locker{conn: conn, prefix: prefix}
}

// WithLock 在持有 resourceID 对应锁的前提下执行 fn
func (lk *Locker) WithLock(ctx context.Context, resourceID string, fn func() error) error {
	lock, err := NewDistributedLock(lk.conn, lk.prefix+"-"+resourceID)
	if err != nil {
		return err
	}
	if err := lock.Lock(ctx); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}
