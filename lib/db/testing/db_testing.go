package testing

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/strandkv/strand/lib/db"
)

// DBFactory is a function that creates a new instance of a StringDB implementation
type DBFactory func() db.StringDB

// RunStringDBTests runs a comprehensive test suite for a StringDB implementation.
func RunStringDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("SetCond", func(t *testing.T) {
			testSetCond(t, factory())
		})

		t.Run("Update", func(t *testing.T) {
			testUpdate(t, factory())
		})

		t.Run("UpdateConcurrent", func(t *testing.T) {
			testUpdateConcurrent(t, factory())
		})

		t.Run("Expire", func(t *testing.T) {
			testExpire(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			testKeyExpiry(t, factory())
		})

		t.Run("ManyExpiringKeys", func(t *testing.T) {
			testManyExpiringKeys(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("CollisionHandling", func(t *testing.T) {
			testCollisionHandling(t, factory())
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.StringDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.StringDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	database.Set(testKey, testValue1)

	result, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	database.Set(testKey, testValue2)

	result, exists = database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, exists = database.Get("nonexistent-key")
	if exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}
}

func testSetCond(t *testing.T, database db.StringDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetCond)
	requireFeature(t, database, db.FeatureGet)

	testKey := "cond-test-key"
	testValue1 := []byte("cond-value1")
	testValue2 := []byte("cond-value2")

	// CondIfSet on a missing key must not write
	if database.SetCond(testKey, testValue1, 0, db.CondIfSet) {
		t.Errorf("CondIfSet stored a value for a missing key")
	}
	if _, exists := database.Get(testKey); exists {
		t.Errorf("Key %s must not exist after refused conditional write", testKey)
	}

	// CondIfUnset stores once, then refuses
	if !database.SetCond(testKey, testValue1, 0, db.CondIfUnset) {
		t.Errorf("CondIfUnset refused to store a missing key")
	}
	if database.SetCond(testKey, testValue2, 0, db.CondIfUnset) {
		t.Errorf("CondIfUnset overwrote an existing key")
	}

	result, exists := database.Get(testKey)
	if !exists || !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s (exists=%v)", testValue1, result, exists)
	}

	// CondIfSet now succeeds
	if !database.SetCond(testKey, testValue2, 0, db.CondIfSet) {
		t.Errorf("CondIfSet refused to update an existing key")
	}
	result, _ = database.Get(testKey)
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	// an expired key counts as unset
	expKey := "cond-expired-key"
	database.SetE(expKey, testValue1, 30*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	if !database.SetCond(expKey, testValue2, 0, db.CondIfUnset) {
		t.Errorf("CondIfUnset refused to store over an expired key")
	}
	result, exists = database.Get(expKey)
	if !exists || !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s after expiry overwrite, got %s (exists=%v)", testValue2, result, exists)
	}

	// CondNone always writes
	if !database.SetCond(testKey, testValue1, 0, db.CondNone) {
		t.Errorf("CondNone refused to write")
	}
}

func testUpdate(t *testing.T, database db.StringDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureUpdate)
	requireFeature(t, database, db.FeatureGet)

	testKey := "update-test-key"

	// missing key: fn sees loaded=false, write=false leaves it missing
	old, loaded := database.Update(testKey, func(old []byte, loaded bool) ([]byte, bool) {
		if loaded {
			t.Errorf("Expected loaded=false for missing key")
		}
		return nil, false
	})
	if loaded || old != nil {
		t.Errorf("Expected (nil, false) updating a missing key, got (%v, %v)", old, loaded)
	}
	if database.Has(testKey) {
		t.Errorf("Key %s must not exist after write=false update", testKey)
	}

	// missing key: write=true creates it
	database.Update(testKey, func(old []byte, loaded bool) ([]byte, bool) {
		return []byte("created"), true
	})
	result, exists := database.Get(testKey)
	if !exists || !bytes.Equal(result, []byte("created")) {
		t.Errorf("Expected created value, got %s (exists=%v)", result, exists)
	}

	// existing key: fn sees the old value, transformation is applied
	old, loaded = database.Update(testKey, func(old []byte, loaded bool) ([]byte, bool) {
		return append(append([]byte(nil), old...), []byte("-suffix")...), true
	})
	if !loaded || !bytes.Equal(old, []byte("created")) {
		t.Errorf("Expected old value %q, got %q (loaded=%v)", "created", old, loaded)
	}
	result, _ = database.Get(testKey)
	if !bytes.Equal(result, []byte("created-suffix")) {
		t.Errorf("Expected transformed value, got %s", result)
	}

	// write=false leaves the value untouched
	database.Update(testKey, func(old []byte, loaded bool) ([]byte, bool) {
		return []byte("discarded"), false
	})
	result, _ = database.Get(testKey)
	if !bytes.Equal(result, []byte("created-suffix")) {
		t.Errorf("write=false changed the value to %s", result)
	}

	// ttl survives an update
	ttlKey := "update-ttl-key"
	database.SetE(ttlKey, []byte("short-lived"), 80*time.Millisecond)
	database.Update(ttlKey, func(old []byte, loaded bool) ([]byte, bool) {
		return []byte("still-short-lived"), true
	})
	if _, exists := database.Get(ttlKey); !exists {
		t.Errorf("Key %s disappeared right after update", ttlKey)
	}
	time.Sleep(150 * time.Millisecond)
	if _, exists := database.Get(ttlKey); exists {
		t.Errorf("Update dropped the ttl of key %s", ttlKey)
	}
}

func testUpdateConcurrent(t *testing.T, database db.StringDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureUpdate)
	requireFeature(t, database, db.FeatureGet)

	const (
		numWorkers    = 8
		incsPerWorker = 500
	)

	counterKey := "concurrent-counter"
	database.Set(counterKey, []byte("0"))

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < incsPerWorker; i++ {
				database.Update(counterKey, func(old []byte, loaded bool) ([]byte, bool) {
					n := 0
					if loaded {
						n, _ = strconv.Atoi(string(old))
					}
					return []byte(strconv.Itoa(n + 1)), true
				})
			}
		}()
	}

	wg.Wait()

	result, exists := database.Get(counterKey)
	if !exists {
		t.Fatalf("Counter key disappeared")
	}
	got, _ := strconv.Atoi(string(result))
	if want := numWorkers * incsPerWorker; got != want {
		t.Errorf("Lost updates: expected counter %d, got %d", want, got)
	}
}

func testExpire(t *testing.T, database db.StringDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureExpire)

	testKey := "expire-test-key"
	testValue := []byte("expire-test-value")

	database.Set(testKey, testValue)

	if !database.Expire(testKey, 40*time.Millisecond) {
		t.Errorf("Expire reported a live key as missing")
	}

	if _, exists := database.Get(testKey); !exists {
		t.Errorf("Key %s expired before its deadline", testKey)
	}

	time.Sleep(100 * time.Millisecond)

	if _, exists := database.Get(testKey); exists {
		t.Errorf("Key %s still visible after its deadline", testKey)
	}

	// zero ttl removes an expiration
	persistKey := "persist-test-key"
	database.SetE(persistKey, testValue, 40*time.Millisecond)
	if !database.Expire(persistKey, 0) {
		t.Errorf("Expire(0) reported a live key as missing")
	}
	time.Sleep(100 * time.Millisecond)
	if _, exists := database.Get(persistKey); !exists {
		t.Errorf("Key %s expired although its ttl was removed", persistKey)
	}

	if database.Expire("nonexistent-key", time.Second) {
		t.Errorf("Expire reported success for a nonexistent key")
	}
}

func testDelete(t *testing.T, database db.StringDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureDelete)

	testKey := "delete-test-key"
	testValue := []byte("delete-test-value")

	database.Set(testKey, testValue)

	_, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	database.Delete(testKey)

	_, exists = database.Get(testKey)
	if exists {
		t.Errorf("Expected key %s to not exist after Delete", testKey)
	}

	if database.Has(testKey) {
		t.Errorf("Expected key %s to not exist after Delete", testKey)
	}

	database.Delete("nonexistent-key")
}

func testHas(t *testing.T, database db.StringDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureHas)

	testKey := "has-exists-test-key"
	testValue := []byte("has-exists-test-value")

	if database.Has(testKey) {
		t.Errorf("Expected Has to return false for nonexistent key")
	}

	database.Set(testKey, testValue)

	if !database.Has(testKey) {
		t.Errorf("Expected Has to return true after Set")
	}

	database.Expire(testKey, 30*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	if database.Has(testKey) {
		t.Errorf("Expected Has to return false after expiry")
	}
}

func testKeyExpiry(t *testing.T, database db.StringDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureHas)

	testKey := "expiring-key"
	testValue := []byte("expiring-value")

	database.SetE(testKey, testValue, 60*time.Millisecond)

	result, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Key should be visible right after SetE (get)")
	}
	if !bytes.Equal(result, testValue) {
		t.Errorf("Expected value %s, got %s", testValue, result)
	}
	if !database.Has(testKey) {
		t.Errorf("Key should be visible right after SetE (has)")
	}

	time.Sleep(150 * time.Millisecond)

	if _, exists = database.Get(testKey); exists {
		t.Errorf("Key should have expired (get)")
	}
	if database.Has(testKey) {
		t.Errorf("Key should have expired (has)")
	}

	// overwriting an expiring key replaces its ttl
	testKey2 := "rewritten-key"
	database.SetE(testKey2, testValue, 40*time.Millisecond)
	database.Set(testKey2, testValue)
	time.Sleep(100 * time.Millisecond)

	if _, exists = database.Get(testKey2); !exists {
		t.Errorf("Plain Set should have cleared the previous ttl")
	}

	testKey3 := "not-expiring-key"
	testValue3 := []byte("not-expiring-value")

	database.SetE(testKey3, testValue3, 0)

	time.Sleep(100 * time.Millisecond)
	result, exists = database.Get(testKey3)
	if !exists {
		t.Errorf("Key with TTL=0 should never expire")
	}
	if !bytes.Equal(result, testValue3) {
		t.Errorf("Expected value %s, got %s", testValue3, result)
	}
}

func testManyExpiringKeys(t *testing.T, database db.StringDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)

	numKeys := 500

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("expire-key-%d", i)
		value := []byte(fmt.Sprintf("expire-value-%d", i))

		// every third key never expires, the rest within 100ms
		ttl := time.Duration(0)
		if i%3 != 0 {
			ttl = time.Duration(1+i%100) * time.Millisecond
		}
		database.SetE(key, value, ttl)

		if !database.Has(key) {
			t.Errorf("Key %s not found after Set", key)
		}
	}

	time.Sleep(250 * time.Millisecond)

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("expire-key-%d", i)
		_, exists := database.Get(key)

		if i%3 == 0 {
			if !exists {
				t.Errorf("Key %s without ttl should still exist", key)
			}
		} else {
			if exists {
				t.Errorf("Key %s should have expired", key)
			}
		}
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	database := factory()
	database2 := factory()

	// close the databases after the test
	defer database.Close()
	defer database2.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureSave)
	requireFeature(t, database2, db.FeatureLoad)

	numEntries := 1000
	originalKeys := make([]string, numEntries)
	originalValues := make([][]byte, numEntries)

	for i := 0; i < numEntries; i++ {
		key := fmt.Sprintf("save-load-test-key-%d", i)
		value := []byte(fmt.Sprintf("save-load-test-value-%d", i))
		originalKeys[i] = key
		originalValues[i] = value

		database.Set(key, value)
	}

	// expired entries must not survive the round trip
	database.SetE("dead-key", []byte("dead-value"), 20*time.Millisecond)
	// live ttl entries must keep their deadline
	database.SetE("deadline-key", []byte("deadline-value"), 400*time.Millisecond)

	time.Sleep(60 * time.Millisecond)

	var buf bytes.Buffer
	err := database.Save(&buf)
	if err != nil {
		t.Errorf("Unexpected error during Save: %v", err)
	}

	err = database2.Load(&buf)
	if err != nil {
		t.Errorf("Unexpected error during Load: %v", err)
	}

	for i := 0; i < numEntries; i++ {
		key := originalKeys[i]
		expectedValue := originalValues[i]

		actualValue, exists := database2.Get(key)
		if !exists {
			t.Errorf("Key %s not found after Load", key)
			continue
		}

		if !bytes.Equal(actualValue, expectedValue) {
			t.Errorf("Value mismatch for key %s: expected %s, got %s", key, expectedValue, actualValue)
		}
	}

	if _, exists := database2.Get("dead-key"); exists {
		t.Errorf("Expired entry was resurrected by Load")
	}

	if _, exists := database2.Get("deadline-key"); !exists {
		t.Errorf("Live ttl entry did not survive the round trip")
	}
	time.Sleep(500 * time.Millisecond)
	if _, exists := database2.Get("deadline-key"); exists {
		t.Errorf("Loaded entry lost its expiration deadline")
	}

	// the source database is unaffected by Save
	for i := 0; i < numEntries; i++ {
		key := originalKeys[i]
		expectedValue := originalValues[i]

		actualValue, exists := database.Get(key)
		if !exists {
			t.Errorf("Key %s not found in original database", key)
			continue
		}

		if !bytes.Equal(actualValue, expectedValue) {
			t.Errorf("Value mismatch in original database for key %s", key)
		}
	}
}

func testEdgeCases(t *testing.T, database db.StringDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)

	emptyKey := ""
	emptyKeyValue := []byte("value for empty key")

	database.Set(emptyKey, emptyKeyValue)

	result, exists := database.Get(emptyKey)
	if !exists {
		t.Errorf("Empty key not found after Set")
	} else if !bytes.Equal(result, emptyKeyValue) {
		t.Errorf("Value mismatch for empty key")
	}

	emptyValueKey := "empty-value-key"
	var emptyValue []byte

	database.Set(emptyValueKey, emptyValue)

	result, exists = database.Get(emptyValueKey)
	if !exists {
		t.Errorf("Key for empty value not found after Set")
	} else if len(result) != 0 {
		t.Errorf("Empty value resulted in non-empty value: %v", result)
	}

	if !t.Failed() {

		largeKey := string(make([]byte, 1000))
		largeKeyValue := []byte("value for large key")

		database.Set(largeKey, largeKeyValue)

		result, exists = database.Get(largeKey)
		if !exists {
			t.Errorf("Large key not found after Set")
		} else if !bytes.Equal(result, largeKeyValue) {
			t.Errorf("Value mismatch for large key")
		}

		largeValueKey := "large-value-key"
		largeValue := make([]byte, 8*1024*1024)

		for i := range largeValue {
			largeValue[i] = byte(i % 256)
		}

		database.Set(largeValueKey, largeValue)

		result, exists = database.Get(largeValueKey)
		if !exists {
			t.Errorf("Key for large value not found after Set")
		} else if !bytes.Equal(result, largeValue) {

			headMismatch := !bytes.Equal(result[:10], largeValue[:10])
			tailMismatch := !bytes.Equal(result[len(result)-10:], largeValue[len(largeValue)-10:])
			if headMismatch || tailMismatch || len(result) != len(largeValue) {
				t.Errorf("Large value mismatch: Head mismatch=%v, Tail mismatch=%v, Size mismatch=%v",
					headMismatch, tailMismatch, len(result) != len(largeValue))
			}
		}
	}
}

func testCollisionHandling(t *testing.T, database db.StringDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureDelete)

	prefix := "collision-test-"
	numKeys := 1000

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		value := []byte(fmt.Sprintf("value-%d", i))

		database.Set(key, value)
	}

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		expectedValue := []byte(fmt.Sprintf("value-%d", i))

		actualValue, exists := database.Get(key)
		if !exists {
			t.Errorf("Key %s not found", key)
			continue
		}

		if !bytes.Equal(actualValue, expectedValue) {
			t.Errorf("Value for key %s does not match: expected %s, got %s",
				key, expectedValue, actualValue)
		}
	}

	for i := 0; i < numKeys; i += 2 {
		key := fmt.Sprintf("%s%d", prefix, i)
		database.Delete(key)
	}

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		_, exists := database.Get(key)

		if i%2 == 0 {
			if exists {
				t.Errorf("Key %s should be deleted", key)
			}
		} else {
			if !exists {
				t.Errorf("Key %s should still exist", key)
			}
		}
	}
}

func testRealisticUsage(t *testing.T, database db.StringDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureDelete)

	type operation struct {
		op    string
		key   string
		value []byte
	}

	numOperations := 10_000
	operations := make([]operation, numOperations)

	for i := 0; i < numOperations; i++ {
		var op string
		switch i % 10 {
		case 0, 1, 2, 3, 4, 5:
			op = "set"
		case 6, 7:
			op = "get"
		case 8:
			op = "update"
		case 9:
			op = "delete"
		}

		var key string
		if i%5 == 0 {

			key = fmt.Sprintf("hot-key-%d", i%50)
		} else {

			key = fmt.Sprintf("key-%d", i)
		}

		var value []byte
		if op == "set" {
			valueSize := 64
			if i%10 == 0 {

				valueSize = 1024
			}
			value = make([]byte, valueSize)

			for j := 0; j < valueSize; j++ {
				value[j] = byte((i + j) % 256)
			}
		}

		operations[i] = operation{op, key, value}
	}

	allKeys := make(map[string]bool)
	for _, op := range operations {
		allKeys[op.key] = true
	}

	numWorkers := 8
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	opsPerWorker := numOperations / numWorkers

	for w := 0; w < numWorkers; w++ {
		go func(workerId int) {
			defer wg.Done()

			start := workerId * opsPerWorker
			end := start + opsPerWorker

			for i := start; i < end; i++ {
				op := operations[i]

				switch op.op {
				case "set":
					database.Set(op.key, op.value)
				case "get":
					database.Get(op.key)
				case "update":
					database.Update(op.key, func(old []byte, loaded bool) ([]byte, bool) {
						return append(append([]byte(nil), old...), 'u'), loaded
					})
				case "delete":
					database.Delete(op.key)
				}
			}
		}(w)
	}

	wg.Wait()

	// the store must be quiescent now: two reads of every key agree
	for key := range allKeys {
		first, firstExists := database.Get(key)
		second, secondExists := database.Get(key)

		if firstExists != secondExists {
			t.Errorf("Consistency error: Key %s existence changed between reads", key)
			continue
		}

		if firstExists && !bytes.Equal(first, second) {
			t.Errorf("Value mismatch for key %s between verification passes", key)
		}
	}
}
