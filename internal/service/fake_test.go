package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/campus-canteen/internal/model"
	"github.com/mmeshcher/campus-canteen/internal/payment"
	"github.com/mmeshcher/campus-canteen/internal/repository"
	"github.com/mmeshcher/campus-canteen/internal/token"
)

// memState хранит данные фейкового хранилища. WithinTx работает с копией
// и подменяет состояние только при успехе.
type memState struct {
	users         map[int64]model.User
	vendors       map[int64]model.Vendor
	managers      map[int64]map[int64]bool
	menu          map[int64]model.MenuItem
	orders        map[int64]model.Order
	counters      map[string]int
	userTx        map[int64][]model.Transaction
	vendorTx      map[int64][]model.Transaction
	notifications []model.Notification
	intents       map[string]model.PaymentIntent
	nextID        int64
}

func newMemState() *memState {
	return &memState{
		users:    make(map[int64]model.User),
		vendors:  make(map[int64]model.Vendor),
		managers: make(map[int64]map[int64]bool),
		menu:     make(map[int64]model.MenuItem),
		orders:   make(map[int64]model.Order),
		counters: make(map[string]int),
		userTx:   make(map[int64][]model.Transaction),
		vendorTx: make(map[int64][]model.Transaction),
		intents:  make(map[string]model.PaymentIntent),
		nextID:   1000,
	}
}

func (m *memState) clone() *memState {
	c := newMemState()
	for k, v := range m.users {
		c.users[k] = v
	}
	for k, v := range m.vendors {
		c.vendors[k] = v
	}
	for k, v := range m.managers {
		set := make(map[int64]bool, len(v))
		for id := range v {
			set[id] = true
		}
		c.managers[k] = set
	}
	for k, v := range m.menu {
		c.menu[k] = v
	}
	for k, v := range m.orders {
		v.Items = append([]model.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	for k, v := range m.counters {
		c.counters[k] = v
	}
	for k, v := range m.userTx {
		c.userTx[k] = append([]model.Transaction(nil), v...)
	}
	for k, v := range m.vendorTx {
		c.vendorTx[k] = append([]model.Transaction(nil), v...)
	}
	c.notifications = append([]model.Notification(nil), m.notifications...)
	for k, v := range m.intents {
		c.intents[k] = v
	}
	c.nextID = m.nextID
	return c
}

type fakeRepo struct {
	mu     sync.Mutex
	st     *memState
	failOn string
	txRuns int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{st: newMemState()}
}

func (r *fakeRepo) addUser(id int64, balance string) {
	r.st.users[id] = model.User{ID: id, Name: fmt.Sprintf("user-%d", id), Role: model.RoleCustomer, WalletBalance: decimal.RequireFromString(balance)}
	if b := decimal.RequireFromString(balance); b.IsPositive() {
		r.st.userTx[id] = append(r.st.userTx[id], model.Transaction{Amount: b, Type: model.TxCredit, Funding: model.FundingWallet, Description: "seed"})
	}
}

func (r *fakeRepo) addVendor(id int64, name string, managerID int64) {
	r.st.vendors[id] = model.Vendor{ID: id, OutletName: name, IsActive: true, WalletBalance: decimal.Zero}
	if managerID != 0 {
		if r.st.managers[managerID] == nil {
			r.st.managers[managerID] = make(map[int64]bool)
		}
		r.st.managers[managerID][id] = true
	}
}

func (r *fakeRepo) addItem(id, vendorID int64, name, price string) {
	r.st.menu[id] = model.MenuItem{ID: id, VendorID: vendorID, Name: name, Price: decimal.RequireFromString(price), IsAvailable: true}
}

func (r *fakeRepo) Close() error { return nil }

func (r *fakeRepo) WithinTx(ctx context.Context, fn func(repository.Ledger) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.txRuns++
	work := r.st.clone()
	if err := fn(&fakeLedger{st: work, failOn: r.failOn}); err != nil {
		return err
	}
	r.st = work
	return nil
}

func (r *fakeRepo) CreateUser(ctx context.Context, u model.User) (int64, error) {
	for _, existing := range r.st.users {
		if existing.Email == u.Email {
			return 0, repository.ErrUserExists
		}
	}
	r.st.nextID++
	u.ID = r.st.nextID
	r.st.users[u.ID] = u
	return u.ID, nil
}

func (r *fakeRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r *fakeRepo) MenuItemsByIDs(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error) {
	return r.st.menuItems(ids), nil
}

func (r *fakeRepo) GetMenu(ctx context.Context) ([]model.MenuItem, error) { return nil, nil }

func (r *fakeRepo) GetVendorMenu(ctx context.Context, vendorID int64) ([]model.MenuItem, error) {
	return nil, nil
}

func (r *fakeRepo) AddMenuItem(ctx context.Context, mi model.MenuItem) (*model.MenuItem, error) {
	r.st.nextID++
	mi.ID = r.st.nextID
	mi.IsAvailable = true
	r.st.menu[mi.ID] = mi
	return &mi, nil
}

func (r *fakeRepo) UpdateMenuItem(ctx context.Context, vendorID, itemID int64, upd model.MenuItemUpdate) (*model.MenuItem, error) {
	mi, ok := r.st.menu[itemID]
	if !ok || mi.VendorID != vendorID {
		return nil, repository.ErrNotFound
	}
	if upd.Name != nil {
		mi.Name = *upd.Name
	}
	if upd.Price != nil {
		mi.Price = *upd.Price
	}
	r.st.menu[itemID] = mi
	return &mi, nil
}

func (r *fakeRepo) SetMenuItemAvailability(ctx context.Context, vendorID, itemID int64, available bool) (*model.MenuItem, error) {
	mi, ok := r.st.menu[itemID]
	if !ok || mi.VendorID != vendorID {
		return nil, repository.ErrNotFound
	}
	mi.IsAvailable = available
	r.st.menu[itemID] = mi
	return &mi, nil
}

func (r *fakeRepo) DeleteMenuItem(ctx context.Context, vendorID, itemID int64) (bool, error) {
	mi, ok := r.st.menu[itemID]
	if !ok || mi.VendorID != vendorID {
		return false, repository.ErrNotFound
	}
	for _, o := range r.st.orders {
		for _, it := range o.Items {
			if it.MenuItemID == itemID {
				mi.IsAvailable = false
				r.st.menu[itemID] = mi
				return true, nil
			}
		}
	}
	delete(r.st.menu, itemID)
	return false, nil
}

func (r *fakeRepo) GetVendors(ctx context.Context) ([]model.Vendor, error) { return nil, nil }

func (r *fakeRepo) GetVendor(ctx context.Context, vendorID int64) (*model.Vendor, error) {
	v, ok := r.st.vendors[vendorID]
	if !ok {
		return nil, repository.ErrVendorNotFound
	}
	return &v, nil
}

func (r *fakeRepo) ManagedVendorID(ctx context.Context, userID int64) (int64, error) {
	var ids []int64
	for id := range r.st.managers[userID] {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return 0, repository.ErrVendorNotFound
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids[0], nil
}

func (r *fakeRepo) SetVendorOnline(ctx context.Context, vendorID int64, online bool) (*model.Vendor, error) {
	v := r.st.vendors[vendorID]
	v.IsOnline = online
	r.st.vendors[vendorID] = v
	return &v, nil
}

func (r *fakeRepo) SetVendorUPI(ctx context.Context, vendorID int64, upiID string) (*model.Vendor, error) {
	v := r.st.vendors[vendorID]
	v.UPIID = &upiID
	r.st.vendors[vendorID] = v
	return &v, nil
}

func (r *fakeRepo) GetVendorWallet(ctx context.Context, vendorID int64) (*model.Wallet, error) {
	v := r.st.vendors[vendorID]
	return &model.Wallet{Balance: v.WalletBalance, Transactions: r.st.vendorTx[vendorID]}, nil
}

func (r *fakeRepo) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	o, ok := r.st.orders[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r *fakeRepo) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	var res []model.Order
	for _, o := range r.st.orders {
		if o.UserID == userID {
			res = append(res, o)
		}
	}
	return res, nil
}

func (r *fakeRepo) GetOrdersByVendor(ctx context.Context, vendorID int64) ([]model.Order, error) {
	return nil, nil
}

func (r *fakeRepo) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	u, ok := r.st.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &model.Wallet{Balance: u.WalletBalance, Transactions: r.st.userTx[userID]}, nil
}

func (r *fakeRepo) SavePaymentIntent(ctx context.Context, in model.PaymentIntent) error {
	if _, ok := r.st.intents[in.GatewayOrderID]; ok {
		return repository.ErrIntentExists
	}
	in.Items = append([]model.OrderItem(nil), in.Items...)
	r.st.intents[in.GatewayOrderID] = in
	return nil
}

func (r *fakeRepo) GetNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	return r.st.notificationsOf(userID), nil
}

func (r *fakeRepo) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	for i := range r.st.notifications {
		n := &r.st.notifications[i]
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeRepo) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	var n int64
	for i := range r.st.notifications {
		if r.st.notifications[i].UserID == userID && !r.st.notifications[i].IsRead {
			r.st.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) UnreadCount(ctx context.Context, userID int64) (int, error) {
	n := 0
	for _, x := range r.st.notificationsOf(userID) {
		if !x.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memState) menuItems(ids []int64) map[int64]model.MenuItem {
	res := make(map[int64]model.MenuItem, len(ids))
	for _, id := range ids {
		mi, ok := m.menu[id]
		if !ok {
			continue
		}
		v := m.vendors[mi.VendorID]
		mi.VendorName = v.OutletName
		mi.VendorLive = v.IsActive
		res[id] = mi
	}
	return res
}

func (m *memState) notificationsOf(userID int64) []model.Notification {
	var res []model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			res = append(res, n)
		}
	}
	return res
}

// walletSum пересчитывает баланс пользователя по журналу проводок кошелька.
func (m *memState) walletSum(userID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range m.userTx[userID] {
		if t.Funding != model.FundingWallet {
			continue
		}
		if t.Type == model.TxCredit {
			sum = sum.Add(t.Amount)
		} else {
			sum = sum.Sub(t.Amount)
		}
	}
	return sum
}

type fakeLedger struct {
	st     *memState
	failOn string
}

var errInjected = errors.New("injected store failure")

func (l *fakeLedger) fail(step string) error {
	if l.failOn == step {
		return errInjected
	}
	return nil
}

func (l *fakeLedger) LockUserBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	u, ok := l.st.users[userID]
	if !ok {
		return decimal.Zero, repository.ErrUserNotFound
	}
	return u.WalletBalance, nil
}

func (l *fakeLedger) MenuItemsByIDs(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error) {
	return l.st.menuItems(ids), nil
}

func (l *fakeLedger) LockPaymentIntent(ctx context.Context, gatewayOrderID string) (*model.PaymentIntent, error) {
	in, ok := l.st.intents[gatewayOrderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	in.Items = append([]model.OrderItem(nil), in.Items...)
	return &in, nil
}

func (l *fakeLedger) MarkIntentSettled(ctx context.Context, gatewayOrderID string) error {
	in := l.st.intents[gatewayOrderID]
	if in.SettledAt != nil {
		return repository.ErrPaymentAlreadySettled
	}
	now := time.Now()
	in.SettledAt = &now
	l.st.intents[gatewayOrderID] = in
	return nil
}

func (l *fakeLedger) AllocateToken(ctx context.Context, scope token.Scope) (int, error) {
	if err := l.fail("AllocateToken"); err != nil {
		return 0, err
	}
	key := fmt.Sprintf("%d/%s", scope.VendorID, scope.Date.Format("2006-01-02"))
	l.st.counters[key]++
	return l.st.counters[key], nil
}

func (l *fakeLedger) InsertOrder(ctx context.Context, o *model.Order) error {
	if err := l.fail("InsertOrder"); err != nil {
		return err
	}
	if o.GatewayPaymentID != nil {
		for _, existing := range l.st.orders {
			if existing.GatewayPaymentID != nil && *existing.GatewayPaymentID == *o.GatewayPaymentID {
				return repository.ErrPaymentAlreadySettled
			}
		}
	}
	l.st.nextID++
	o.ID = l.st.nextID
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	stored := *o
	stored.Items = append([]model.OrderItem(nil), o.Items...)
	l.st.orders[o.ID] = stored
	return nil
}

func (l *fakeLedger) DebitUser(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := l.fail("DebitUser"); err != nil {
		return decimal.Zero, err
	}
	u := l.st.users[userID]
	if u.WalletBalance.LessThan(amount) {
		return decimal.Zero, repository.ErrInsufficientBalance
	}
	u.WalletBalance = u.WalletBalance.Sub(amount)
	l.st.users[userID] = u
	return u.WalletBalance, nil
}

func (l *fakeLedger) CreditUser(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	u, ok := l.st.users[userID]
	if !ok {
		return decimal.Zero, repository.ErrUserNotFound
	}
	u.WalletBalance = u.WalletBalance.Add(amount)
	l.st.users[userID] = u
	return u.WalletBalance, nil
}

func (l *fakeLedger) CreditVendor(ctx context.Context, vendorID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := l.fail("CreditVendor"); err != nil {
		return decimal.Zero, err
	}
	v, ok := l.st.vendors[vendorID]
	if !ok {
		return decimal.Zero, repository.ErrNotFound
	}
	v.WalletBalance = v.WalletBalance.Add(amount)
	l.st.vendors[vendorID] = v
	return v.WalletBalance, nil
}

func (l *fakeLedger) AppendUserTransaction(ctx context.Context, userID int64, t model.Transaction) error {
	if err := l.fail("AppendUserTransaction"); err != nil {
		return err
	}
	if t.Funding == "" {
		t.Funding = model.FundingWallet
	}
	l.st.userTx[userID] = append(l.st.userTx[userID], t)
	return nil
}

func (l *fakeLedger) AppendVendorTransaction(ctx context.Context, vendorID int64, t model.Transaction) error {
	l.st.vendorTx[vendorID] = append(l.st.vendorTx[vendorID], t)
	return nil
}

func (l *fakeLedger) AppendNotification(ctx context.Context, n model.Notification) error {
	if err := l.fail("AppendNotification"); err != nil {
		return err
	}
	l.st.nextID++
	n.ID = l.st.nextID
	l.st.notifications = append(l.st.notifications, n)
	return nil
}

func (l *fakeLedger) LockManagedOrder(ctx context.Context, orderID, managerID int64) (*model.Order, error) {
	o, ok := l.st.orders[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, it := range o.Items {
		if l.st.managers[managerID][it.VendorID] {
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (l *fakeLedger) UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) (*model.Order, error) {
	o, ok := l.st.orders[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.Status = status
	l.st.orders[orderID] = o
	return &o, nil
}

type stubGateway struct {
	secret   string
	payments map[string]*payment.Payment
	created  []payment.OrderRequest
	fetched  int
	fetchErr error
}

func newStubGateway(secret string) *stubGateway {
	return &stubGateway{secret: secret, payments: make(map[string]*payment.Payment)}
}

func (g *stubGateway) KeyID() string { return "rzp_test_key" }

func (g *stubGateway) VerifySignature(orderID, paymentID, signature string) error {
	return payment.VerifySignature(g.secret, orderID, paymentID, signature)
}

func (g *stubGateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Order, error) {
	g.created = append(g.created, req)
	return &payment.Order{
		ID:       fmt.Sprintf("order_%d", len(g.created)),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *stubGateway) FetchPayment(ctx context.Context, paymentID string) (*payment.Payment, error) {
	g.fetched++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment %s not found", paymentID)
	}
	return p, nil
}

func (r *fakeRepo) AuditBalances(ctx context.Context) ([]repository.BalanceMismatch, error) {
	var res []repository.BalanceMismatch
	for id, u := range r.st.users {
		if sum := r.st.walletSum(id); !sum.Equal(u.WalletBalance) {
			res = append(res, repository.BalanceMismatch{Kind: "user", ID: id, Cached: u.WalletBalance, Computed: sum})
		}
	}
	for id, v := range r.st.vendors {
		sum := decimal.Zero
		for _, t := range r.st.vendorTx[id] {
			if t.Type == model.TxCredit {
				sum = sum.Add(t.Amount)
			} else {
				sum = sum.Sub(t.Amount)
			}
		}
		if !sum.Equal(v.WalletBalance) {
			res = append(res, repository.BalanceMismatch{Kind: "vendor", ID: id, Cached: v.WalletBalance, Computed: sum})
		}
	}
	return res, nil
}
