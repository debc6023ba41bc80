package inmemory

import (
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/maps"

	"github.com/jothamteshome/watch-together/internal/repository/connection"
)

// repo maps live websocket connections to client ids and remembers which
// rooms each client has joined on this connection. All of it dies with the
// connection; room membership proper lives in the room registry.
type repo struct {
	mu       sync.RWMutex
	connList map[*websocket.Conn]string
	idList   map[string]*websocket.Conn
	roomList map[string]map[string]struct{}
}

func NewRepo() *repo {
	return &repo{
		connList: make(map[*websocket.Conn]string),
		idList:   make(map[string]*websocket.Conn),
		roomList: make(map[string]map[string]struct{}),
	}
}

func (r *repo) Add(conn *websocket.Conn, clientId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connList[conn] != "" || r.idList[clientId] != nil {
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = clientId
	r.idList[clientId] = conn
	r.roomList[clientId] = make(map[string]struct{})

	return nil
}

func (r *repo) RemoveByConn(conn *websocket.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clientId, ok := r.connList[conn]
	if !ok {
		return connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, clientId)
	delete(r.roomList, clientId)

	return nil
}

func (r *repo) GetClientId(conn *websocket.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clientId, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return clientId, nil
}

func (r *repo) GetConn(clientId string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.idList[clientId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

func (r *repo) AddRoom(clientId, roomId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, ok := r.roomList[clientId]
	if !ok {
		return connection.ErrNotFound
	}

	rooms[roomId] = struct{}{}
	return nil
}

func (r *repo) RemoveRoom(clientId, roomId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, ok := r.roomList[clientId]
	if !ok {
		return connection.ErrNotFound
	}

	delete(rooms, roomId)
	return nil
}

func (r *repo) GetRoomIds(clientId string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms, ok := r.roomList[clientId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return maps.Keys(rooms), nil
}
