package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ikelabs/counts_backend/config"
	"github.com/ikelabs/counts_backend/covasync"
	"github.com/ikelabs/counts_backend/models"
	"github.com/ikelabs/counts_backend/utils"
)

func setupIntegration(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "counts_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()
	covasync.Migrate()

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	return ctx
}

func seedCatalog(t *testing.T, ctx context.Context) (*models.Store, *models.Location, *models.Location) {
	t.Helper()

	store, err := models.CreateStore(ctx, &models.NewStore{Name: "Test Store", Code: "TST"})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}

	floor, err := models.CreateLocation(ctx, store.ID, &models.NewLocation{Code: "FLOOR", Name: "Sales Floor"})
	if err != nil {
		t.Fatalf("CreateLocation floor: %v", err)
	}
	flowerShelf, err := models.CreateLocation(ctx, store.ID, &models.NewLocation{
		Code: "FLOWER", Name: "Flower Shelf", CategoryFilter: "Flower",
	})
	if err != nil {
		t.Fatalf("CreateLocation flower: %v", err)
	}

	products := []models.NewProduct{
		{Sku: "FL-001", CovaSku: "CV-FL-001", Name: "Blue Dream 3.5g", Category: "Flower"},
		{Sku: "ED-001", CovaSku: "CV-ED-001", Name: "Gummy Bears 10pk", Category: "Edibles"},
		{Sku: "MISC-001", CovaSku: "CV-MISC-001", Name: "Uncategorized Widget"},
	}
	for i := range products {
		product, err := models.CreateProduct(ctx, &products[i])
		if err != nil {
			t.Fatalf("CreateProduct %s: %v", products[i].Sku, err)
		}
		if product.Sku == "FL-001" {
			if _, err := models.UpsertInventoryItem(ctx, store.ID, product.ID, 10,
				decimal.Zero, decimal.Zero); err != nil {
				t.Fatalf("UpsertInventoryItem: %v", err)
			}
		}
	}
	return store, floor, flowerShelf
}

func TestCountLifecycleAndVariance(t *testing.T) {
	ctx := setupIntegration(t)
	store, floor, flowerShelf := seedCatalog(t, ctx)

	session, err := models.CreateCountSession(ctx, &models.NewCountSession{
		StoreId: store.ID, Name: "Monthly Count",
	})
	if err != nil {
		t.Fatalf("CreateCountSession: %v", err)
	}
	if session.Status != models.SessionStatusDraft {
		t.Fatalf("new session status = %s, want draft", session.Status)
	}

	// opening the first pass auto-promotes the draft session
	pass, err := models.OpenCountPass(ctx, session.ID, &models.NewCountPass{LocationId: floor.ID})
	if err != nil {
		t.Fatalf("OpenCountPass: %v", err)
	}
	session, err = models.GetCountSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetCountSession: %v", err)
	}
	if session.Status != models.SessionStatusInProgress {
		t.Fatalf("session status after first pass = %s, want in_progress", session.Status)
	}

	// idempotent re-scan: second scan increments, reporting the prior qty
	first, err := models.RecordCountLine(ctx, pass.ID, &models.NewCountLine{Barcode: "FL-001"})
	if err != nil {
		t.Fatalf("RecordCountLine first: %v", err)
	}
	if first.Incremented || first.Line.CountedQty != 1 || first.PreviousQty != 0 {
		t.Fatalf("first scan: incremented=%v qty=%d previous=%d, want create/1/0",
			first.Incremented, first.Line.CountedQty, first.PreviousQty)
	}
	if first.Product == nil || first.Product.Name != "Blue Dream 3.5g" {
		t.Fatalf("first scan should return resolved product, got %+v", first.Product)
	}

	qty := 7
	second, err := models.RecordCountLine(ctx, pass.ID, &models.NewCountLine{Barcode: "CV-FL-001", Qty: &qty})
	if err != nil {
		t.Fatalf("RecordCountLine second: %v", err)
	}
	if !second.Incremented || second.Line.CountedQty != 8 || second.PreviousQty != 1 {
		t.Fatalf("second scan: incremented=%v qty=%d previous=%d, want increment/8/1",
			second.Incremented, second.Line.CountedQty, second.PreviousQty)
	}
	if second.Line.ID != first.Line.ID {
		t.Fatalf("re-scan created a new line: %d vs %d", second.Line.ID, first.Line.ID)
	}

	// scope enforcement on a scoped pass
	scoped, err := models.OpenCountPass(ctx, session.ID, &models.NewCountPass{LocationId: flowerShelf.ID})
	if err != nil {
		t.Fatalf("OpenCountPass scoped: %v", err)
	}
	if scoped.CategoryScope != "Flower" {
		t.Fatalf("scoped pass should inherit the location filter, got %q", scoped.CategoryScope)
	}
	_, err = models.RecordCountLine(ctx, scoped.ID, &models.NewCountLine{Barcode: "ED-001"})
	if !utils.IsScopeMismatch(err) {
		t.Fatalf("edible on the flower shelf should be a scope mismatch, got %v", err)
	}
	if _, err = models.RecordCountLine(ctx, scoped.ID, &models.NewCountLine{Barcode: "MISC-001"}); err != nil {
		t.Fatalf("uncategorized product should pass a scoped pass, got %v", err)
	}
	if _, err := models.VoidCountPass(ctx, scoped.ID); err != nil {
		t.Fatalf("VoidCountPass: %v", err)
	}

	// session submit is blocked while the floor pass is still open
	if _, err := models.SubmitCountSession(ctx, session.ID); !utils.IsInvalidState(err) {
		t.Fatalf("submit with open pass should be InvalidState, got %v", err)
	}

	if _, err := models.SubmitCountPass(ctx, pass.ID); err != nil {
		t.Fatalf("SubmitCountPass: %v", err)
	}

	// lifecycle guards after submission
	if _, err := models.RecordCountLine(ctx, pass.ID, &models.NewCountLine{Barcode: "FL-001"}); !utils.IsInvalidState(err) {
		t.Fatalf("record on submitted pass should be InvalidState, got %v", err)
	}
	newQty := 4
	if _, err := models.UpdateCountLine(ctx, first.Line.ID, &models.CorrectCountLine{Qty: &newQty}); !utils.IsInvalidState(err) {
		t.Fatalf("correct on submitted pass should be InvalidState, got %v", err)
	}
	if _, err := models.DeleteCountLine(ctx, first.Line.ID); !utils.IsInvalidState(err) {
		t.Fatalf("remove on submitted pass should be InvalidState, got %v", err)
	}
	if _, err := models.VoidCountPass(ctx, pass.ID); !utils.IsInvalidState(err) {
		t.Fatalf("voiding a submitted pass should be InvalidState, got %v", err)
	}

	// voided passes do not block submission
	session, err = models.SubmitCountSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("SubmitCountSession: %v", err)
	}
	if session.Status != models.SessionStatusSubmitted {
		t.Fatalf("session status = %s, want submitted", session.Status)
	}

	// a sale inside the counting window: baseline 10, sold 3, counted 8
	pass, err = models.GetCountPass(ctx, pass.ID)
	if err != nil {
		t.Fatalf("reload pass: %v", err)
	}
	saleAt := pass.StartedAt.Add(pass.SubmittedAt.Sub(pass.StartedAt) / 2)
	if _, err := models.CreateMovement(ctx, &models.NewMovement{
		StoreId: store.ID, Barcode: "FL-001",
		MovementType: models.MovementTypeSale, QtyDelta: -3, OccurredAt: &saleAt,
	}); err != nil {
		t.Fatalf("CreateMovement: %v", err)
	}

	report, err := models.GetSessionVariance(ctx, session.ID, models.VarianceOptions{})
	if err != nil {
		t.Fatalf("GetSessionVariance: %v", err)
	}
	item := findVarianceItem(report, "FL-001")
	if item == nil {
		t.Fatalf("FL-001 missing from variance report: %+v", report.Items)
	}
	if item.BaselineQty != 10 || item.MovementDelta != -3 || item.ExpectedQty != 7 || item.Variance != 1 {
		t.Fatalf("variance = %+v, want baseline 10, delta -3, expected 7, variance +1", item)
	}

	// non-zero filter never returns a balanced sku
	filtered, err := models.GetSessionVariance(ctx, session.ID, models.VarianceOptions{NonZeroOnly: true})
	if err != nil {
		t.Fatalf("GetSessionVariance non-zero: %v", err)
	}
	for _, it := range filtered.Items {
		if it.CountedQty == it.BaselineQty+it.MovementDelta {
			t.Fatalf("non_zero_only returned zero-variance sku %s", it.Sku)
		}
	}

	// forward-only session lifecycle
	if _, err := models.ReconcileCountSession(ctx, session.ID); err != nil {
		t.Fatalf("ReconcileCountSession: %v", err)
	}
	if _, err := models.StartCountSession(ctx, session.ID); !utils.IsInvalidState(err) {
		t.Fatalf("backward transition should be InvalidState, got %v", err)
	}
	closed, err := models.CloseCountSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("CloseCountSession: %v", err)
	}
	if closed.Status != models.SessionStatusClosed {
		t.Fatalf("session status = %s, want closed", closed.Status)
	}
}

func TestVarianceWindowUnionVsPerPass(t *testing.T) {
	ctx := setupIntegration(t)
	store, floor, _ := seedCatalog(t, ctx)

	session, err := models.CreateCountSession(ctx, &models.NewCountSession{
		StoreId: store.ID, Name: "Window Union",
	})
	if err != nil {
		t.Fatalf("CreateCountSession: %v", err)
	}

	// first pass counts 8 of FL-001
	pass1, err := models.OpenCountPass(ctx, session.ID, &models.NewCountPass{LocationId: floor.ID})
	if err != nil {
		t.Fatalf("OpenCountPass 1: %v", err)
	}
	qty := 8
	if _, err := models.RecordCountLine(ctx, pass1.ID, &models.NewCountLine{Barcode: "FL-001", Qty: &qty}); err != nil {
		t.Fatalf("RecordCountLine: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if _, err := models.SubmitCountPass(ctx, pass1.ID); err != nil {
		t.Fatalf("SubmitCountPass 1: %v", err)
	}

	// a sale lands in the gap between the two pass windows
	time.Sleep(200 * time.Millisecond)
	gapSale := time.Now()
	if _, err := models.CreateMovement(ctx, &models.NewMovement{
		StoreId: store.ID, Barcode: "FL-001",
		MovementType: models.MovementTypeSale, QtyDelta: -2, OccurredAt: &gapSale,
	}); err != nil {
		t.Fatalf("CreateMovement gap: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	pass2, err := models.OpenCountPass(ctx, session.ID, &models.NewCountPass{LocationId: floor.ID})
	if err != nil {
		t.Fatalf("OpenCountPass 2: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if _, err := models.SubmitCountPass(ctx, pass2.ID); err != nil {
		t.Fatalf("SubmitCountPass 2: %v", err)
	}

	// a sale inside pass1's own window
	pass1, _ = models.GetCountPass(ctx, pass1.ID)
	inWindow := pass1.StartedAt.Add(pass1.SubmittedAt.Sub(pass1.StartedAt) / 2)
	if _, err := models.CreateMovement(ctx, &models.NewMovement{
		StoreId: store.ID, Barcode: "FL-001",
		MovementType: models.MovementTypeSale, QtyDelta: -3, OccurredAt: &inWindow,
	}); err != nil {
		t.Fatalf("CreateMovement in-window: %v", err)
	}

	// blanket window spans the gap, so both sales count: delta -5
	blanket, err := models.GetSessionVariance(ctx, session.ID, models.VarianceOptions{})
	if err != nil {
		t.Fatalf("GetSessionVariance blanket: %v", err)
	}
	item := findVarianceItem(blanket, "FL-001")
	if item == nil || item.MovementDelta != -5 {
		t.Fatalf("blanket movement delta = %+v, want -5 (gap sale included)", item)
	}

	// per-pass windows exclude the gap sale: delta -3
	perPass, err := models.GetSessionVariance(ctx, session.ID, models.VarianceOptions{PerPassWindows: true})
	if err != nil {
		t.Fatalf("GetSessionVariance per-pass: %v", err)
	}
	item = findVarianceItem(perPass, "FL-001")
	if item == nil || item.MovementDelta != -3 {
		t.Fatalf("per-pass movement delta = %+v, want -3 (gap sale excluded)", item)
	}
}

func TestSalesSyncDedupAndForceResync(t *testing.T) {
	ctx := setupIntegration(t)
	store, _, _ := seedCatalog(t, ctx)

	db := config.GetDB()
	soldAt := time.Now().Add(-2 * time.Hour)
	sales := []covasync.CovaSale{
		{TransactionId: "TXN-1", LineNumber: 1, CovaStoreId: "cova-1", Sku: "CV-FL-001", Quantity: 2, SoldAt: soldAt},
		{TransactionId: "TXN-1", LineNumber: 2, CovaStoreId: "cova-1", Sku: "CV-ED-001", Quantity: 1, SoldAt: soldAt},
		{TransactionId: "TXN-2", LineNumber: 1, CovaStoreId: "cova-1", Sku: "GHOST-SKU", Quantity: 1, SoldAt: soldAt},
	}
	for i := range sales {
		if err := db.WithContext(ctx).Create(&sales[i]).Error; err != nil {
			t.Fatalf("seed cova sale: %v", err)
		}
	}

	svc := covasync.NewService(
		covasync.NewStoreIdMap(map[int][]string{store.ID: {"cova-1"}}),
		covasync.NewDBSalesFeed(),
	)

	stats, err := svc.SyncSalesToMovements(ctx, store.ID, nil, nil, false)
	if err != nil {
		t.Fatalf("SyncSalesToMovements: %v", err)
	}
	if stats.Found != 3 || stats.Created != 2 || stats.NotFound != 1 {
		t.Fatalf("first sync = %+v, want found 3, created 2, not_found 1", stats)
	}
	if len(stats.UnmatchedSkus) != 1 || stats.UnmatchedSkus[0] != "GHOST-SKU" {
		t.Fatalf("unmatched = %v, want [GHOST-SKU]", stats.UnmatchedSkus)
	}

	// quantities are sign-normalized and the source_ref is the natural key
	exists, err := models.MovementExists(ctx, store.ID, "FL-001", "TXN-1:1")
	if err != nil || !exists {
		t.Fatalf("movement TXN-1:1 should exist, got %v %v", exists, err)
	}
	var movement models.Movement
	if err := db.WithContext(ctx).Where("store_id = ? AND source_ref = ?", store.ID, "TXN-1:1").
		First(&movement).Error; err != nil {
		t.Fatalf("fetch synced movement: %v", err)
	}
	if movement.QtyDelta != -2 || movement.Source != models.MovementSourceCova {
		t.Fatalf("movement = %+v, want qty_delta -2, source cova", movement)
	}

	// second run without force is a no-op
	stats, err = svc.SyncSalesToMovements(ctx, store.ID, nil, nil, false)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if stats.Created != 0 || stats.Skipped != 2 {
		t.Fatalf("second sync = %+v, want created 0, skipped 2", stats)
	}

	// force resync rebuilds the same final set
	stats, err = svc.SyncSalesToMovements(ctx, store.ID, nil, nil, true)
	if err != nil {
		t.Fatalf("force sync: %v", err)
	}
	if stats.Deleted != 2 || stats.Created != 2 {
		t.Fatalf("force sync = %+v, want deleted 2, created 2", stats)
	}
	var count int64
	if err := db.WithContext(ctx).Model(&models.Movement{}).
		Where("store_id = ? AND source = ?", store.ID, models.MovementSourceCova).
		Count(&count).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if count != 2 {
		t.Fatalf("movement count after force = %d, want 2", count)
	}

	status, err := svc.GetSyncStatus(ctx, store.ID)
	if err != nil {
		t.Fatalf("GetSyncStatus: %v", err)
	}
	if status.LastMovementAt == nil || status.TodayCount != 2 {
		t.Fatalf("status = %+v, want last movement set and today count 2", status)
	}
}

func findVarianceItem(report *models.VarianceReport, sku string) *models.VarianceItem {
	for i := range report.Items {
		if report.Items[i].Sku == sku {
			return &report.Items[i]
		}
	}
	return nil
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("counts-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("counts-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=counts_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
