package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"tripseal-backend/internal/cache"
	"tripseal-backend/internal/repositories"
)

// Server is the side-port operations dashboard. It exposes process and
// database stats as JSON and pushes alerts to websocket subscribers.
type Server struct {
	db         *pgxpool.Pool
	metrics    *repositories.MetricsRepository
	notifyLogs *repositories.NotificationLogRepository
	port       int

	alerts     []Alert
	alertsMux  sync.RWMutex
	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan Alert
}

type Alert struct {
	ID        int       `json:"id"`
	Severity  string    `json:"severity"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
}

type Stats struct {
	DatabaseStatus    string  `json:"database_status"`
	ResponseTime      int64   `json:"response_time_ms"`
	ActiveConnections int     `json:"active_connections"`
	PoolTotal         int32   `json:"pool_total_conns"`
	PoolIdle          int32   `json:"pool_idle_conns"`
	CacheStatus       string  `json:"cache_status"`
	RequestsLastHour  int64   `json:"requests_last_hour"`
	ErrorsLastHour    int64   `json:"errors_last_hour"`
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryPercent     float64 `json:"memory_percent"`
	MemoryUsed        string  `json:"memory_used"`
	MemoryTotal       string  `json:"memory_total"`
	DiskPercent       float64 `json:"disk_percent"`
	DBSize            string  `json:"db_size"`
	DBUptime          string  `json:"db_uptime"`
	ActiveAlerts      int     `json:"active_alerts"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewServer(db *pgxpool.Pool, metrics *repositories.MetricsRepository, notifyLogs *repositories.NotificationLogRepository, port int) *Server {
	return &Server{
		db:         db,
		metrics:    metrics,
		notifyLogs: notifyLogs,
		port:       port,
		alerts:     make([]Alert, 0),
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Alert),
	}
}

func (s *Server) Start() {
	r := mux.NewRouter()

	r.HandleFunc("/api/stats", s.getStats).Methods("GET")
	r.HandleFunc("/api/alerts", s.getAlerts).Methods("GET")
	r.HandleFunc("/ws", s.handleWebSocket)

	go s.handleBroadcast()
	go s.monitorHealth()

	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("[Monitoring] dashboard listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats := s.collectStats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) collectStats() Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := s.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	dbStatus := "healthy"
	if err != nil {
		dbStatus = "unhealthy"
	}

	var activeConns int
	s.db.QueryRow(ctx, `SELECT count(*) FROM pg_stat_activity`).Scan(&activeConns)

	var dbSizeBytes int64
	s.db.QueryRow(ctx, `SELECT pg_database_size(current_database())`).Scan(&dbSizeBytes)

	var uptimeSec int
	s.db.QueryRow(ctx, `SELECT EXTRACT(EPOCH FROM (NOW() - pg_postmaster_start_time()))::int`).Scan(&uptimeSec)

	poolStats := s.db.Stat()

	total, errors, statErr := s.metrics.RequestStats(ctx)
	if statErr != nil {
		total, errors = 0, 0
	}

	cacheStatus := "healthy"
	if !cache.IsHealthy() {
		cacheStatus = "degraded"
	}

	cpuPercents, _ := cpu.Percent(time.Second, false)
	cpuPercent := 0.0
	if len(cpuPercents) > 0 {
		cpuPercent = cpuPercents[0]
	}

	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")

	s.alertsMux.RLock()
	activeAlertCount := 0
	for _, alert := range s.alerts {
		if !alert.Resolved {
			activeAlertCount++
		}
	}
	s.alertsMux.RUnlock()

	return Stats{
		DatabaseStatus:    dbStatus,
		ResponseTime:      responseTime,
		ActiveConnections: activeConns,
		PoolTotal:         poolStats.TotalConns(),
		PoolIdle:          poolStats.IdleConns(),
		CacheStatus:       cacheStatus,
		RequestsLastHour:  total,
		ErrorsLastHour:    errors,
		CPUPercent:        cpuPercent,
		MemoryPercent:     memStats.UsedPercent,
		MemoryUsed:        formatBytes(memStats.Used),
		MemoryTotal:       formatBytes(memStats.Total),
		DiskPercent:       diskStats.UsedPercent,
		DBSize:            formatBytes(uint64(dbSizeBytes)),
		DBUptime:          formatUptime(uptimeSec),
		ActiveAlerts:      activeAlertCount,
	}
}

func formatBytes(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	if gb < 1 {
		mb := float64(bytes) / (1024 * 1024)
		return fmt.Sprintf("%.1f MB", mb)
	}
	return fmt.Sprintf("%.1f GB", gb)
}

func formatUptime(seconds int) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func (s *Server) getAlerts(w http.ResponseWriter, r *http.Request) {
	s.alertsMux.RLock()
	defer s.alertsMux.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.alerts)
}

func (s *Server) raiseAlert(severity, alertType, message string) {
	alert := Alert{
		Severity:  severity,
		Type:      alertType,
		Message:   message,
		Timestamp: time.Now(),
	}

	s.alertsMux.Lock()
	alert.ID = len(s.alerts) + 1
	s.alerts = append(s.alerts, alert)
	s.alertsMux.Unlock()

	s.broadcast <- alert
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[Monitoring] websocket upgrade error:", err)
		return
	}
	defer conn.Close()

	s.clientsMux.Lock()
	s.clients[conn] = true
	s.clientsMux.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.clientsMux.Lock()
			delete(s.clients, conn)
			s.clientsMux.Unlock()
			break
		}
	}
}

func (s *Server) handleBroadcast() {
	for alert := range s.broadcast {
		s.clientsMux.Lock()
		for client := range s.clients {
			if err := client.WriteJSON(alert); err != nil {
				client.Close()
				delete(s.clients, client)
			}
		}
		s.clientsMux.Unlock()
	}
}

func (s *Server) monitorHealth() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		start := time.Now()
		pingErr := s.db.Ping(ctx)
		responseTime := time.Since(start).Milliseconds()

		if pingErr != nil {
			s.raiseAlert("critical", "database_down", "Database is unreachable")
		} else if responseTime > 1000 {
			s.raiseAlert("warning", "high_latency", fmt.Sprintf("Database response time: %dms", responseTime))
		}

		if total, errors, err := s.metrics.RequestStats(ctx); err == nil && total > 0 {
			if rate := float64(errors) / float64(total); rate > 0.05 {
				s.raiseAlert("warning", "error_rate", fmt.Sprintf("%.1f%% of requests failed in the last hour", rate*100))
			}
		}

		if failures, err := s.notifyLogs.RecentFailures(ctx); err == nil && failures > 0 {
			s.raiseAlert("warning", "notification_failures", fmt.Sprintf("%d company notifications failed in the last 24h", failures))
		}

		cancel()
	}
}
