package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/cache"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/database"
)

const (
	CacheKeyRequestsTotal = "statistics:requests:total"
	CacheKeyRequestsDaily = "statistics:requests:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyUsers         = "statistics:users:total"
	CacheExpiration       = 30 * time.Minute
)

// StatisticsData enthält die Statistikdaten für das Admin-Dashboard
type StatisticsData struct {
	TodayRequests int
	TotalUsers    int
	TotalRequests int
}

// Variablen für die Cache-Aktualisierungslogik
var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute // Aktualisiere den Cache alle 5 Minuten
)

// ShouldUpdateCache prüft, ob der Cache aktualisiert werden sollte
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded aktualisiert den Cache, wenn nötig
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		log.Println("Aktualisiere Statistik-Cache...")
		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Fehler beim Aktualisieren des Statistik-Caches: %v", err)
		} else {
			log.Println("Statistik-Cache erfolgreich aktualisiert")
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer setzt den Timer für die Cache-Aktualisierung zurück
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache updates all statistics in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	// Count total AI requests
	var totalRequests int64
	if err := db.Model(&models.UsageLog{}).Where("resource_type = ?", models.ResourceTypeAIRequest).Count(&totalRequests).Error; err != nil {
		log.Printf("Error counting total requests: %v", err)
		return err
	}

	// Count today's AI requests (UTC day)
	var todayRequests int64
	today := time.Now().UTC().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	if err := db.Model(&models.UsageLog{}).
		Where("resource_type = ? AND created_at BETWEEN ? AND ?", models.ResourceTypeAIRequest, todayStart, todayEnd).
		Count(&todayRequests).Error; err != nil {
		log.Printf("Error counting today's requests: %v", err)
		return err
	}

	// Count total users
	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	// Store values in cache
	if err := cache.Set(CacheKeyRequestsTotal, strconv.FormatInt(totalRequests, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total requests: %v", err)
		return err
	}

	dailyKey := fmt.Sprintf(CacheKeyRequestsDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayRequests, 10), CacheExpiration); err != nil {
		log.Printf("Error caching today's requests: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total users: %v", err)
		return err
	}

	log.Printf("Statistics updated in cache: Total Requests: %d, Today's Requests: %d, Total Users: %d",
		totalRequests, todayRequests, totalUsers)

	return nil
}

// GetTotalRequests returns the total number of AI requests from cache or database
func GetTotalRequests() int {
	val, err := cache.Get(CacheKeyRequestsTotal)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.UsageLog{}).Where("resource_type = ?", models.ResourceTypeAIRequest).Count(&count).Error; err != nil {
			log.Printf("Error counting total requests: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyRequestsTotal, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total requests: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTodayRequests returns the number of AI requests made today from cache or database
func GetTodayRequests() int {
	today := time.Now().UTC().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyRequestsDaily, today)

	val, err := cache.Get(dailyKey)
	if err != nil {
		var count int64
		db := database.GetDB()
		todayStart, _ := time.Parse("2006-01-02", today)
		todayEnd := todayStart.Add(24 * time.Hour)

		if err := db.Model(&models.UsageLog{}).
			Where("resource_type = ? AND created_at BETWEEN ? AND ?", models.ResourceTypeAIRequest, todayStart, todayEnd).
			Count(&count).Error; err != nil {
			log.Printf("Error counting today's requests: %v", err)
			return 0
		}

		if err := cache.Set(dailyKey, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching today's requests: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTotalUsers returns the total number of users from cache or database
func GetTotalUsers() int {
	val, err := cache.Get(CacheKeyUsers)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
			log.Printf("Error counting total users: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyUsers, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total users: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetStatisticsData returns all statistics data as StatisticsData structure
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TodayRequests: GetTodayRequests(),
		TotalUsers:    GetTotalUsers(),
		TotalRequests: GetTotalRequests(),
	}
}
