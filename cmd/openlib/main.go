package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ynhind/open-library-client/internal/api"
	"github.com/ynhind/open-library-client/internal/cartflow"
	"github.com/ynhind/open-library-client/internal/checkout"
	"github.com/ynhind/open-library-client/internal/config"
	"github.com/ynhind/open-library-client/internal/logger"
	"github.com/ynhind/open-library-client/internal/repository"
	"github.com/ynhind/open-library-client/internal/session"
)

const usage = `openlib - open-library bookstore client

Usage:
  openlib <command> [flags]

Commands:
  login        -user <identifier> -pass <password>
  register     -user <username> -email <email> -pass <password>
  whoami
  logout
  cart
  cart-add     -book <id> -qty <n>
  cart-update  -book <id> -qty <n>
  cart-remove  -book <id>
  checkout     -select <id,id,...> | -all
  pay          -order <id> -method <COD|BANK_TRANSFER|CREDIT_CARD>
  confirm      -order <id>
  orders
`

// wiring 一次命令运行所需的全部依赖
type wiring struct {
	store    *session.Store
	client   *api.Client
	carts    repository.CartRepository
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	auth     repository.AuthRepository
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	logger.Init(cfg.Client.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	statePath, err := cfg.State.ResolveStatePath()
	if err != nil {
		stdLog.Fatalf("状态库路径解析失败: %v", err)
	}
	store, err := session.Open(statePath)
	if err != nil {
		stdLog.Fatalf("状态库打开失败: %v", err)
	}

	client := api.NewClient(
		cfg.API.BaseURL,
		time.Duration(cfg.API.TimeoutSeconds)*time.Second,
		store,
		logger.Z(),
	)
	w := &wiring{
		store:    store,
		client:   client,
		carts:    repository.NewCartRepository(client),
		orders:   repository.NewOrderRepository(client),
		payments: repository.NewPaymentRepository(client),
		auth:     repository.NewAuthRepository(client, store),
	}

	ctx := context.Background()
	if err := dispatch(ctx, w, os.Args[1], os.Args[2:]); err != nil {
		if api.IsAuthError(err) {
			fmt.Fprintln(os.Stderr, "请先登录: openlib login -user <identifier> -pass <password>")
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, w *wiring, command string, args []string) error {
	switch command {
	case "login":
		return runLogin(ctx, w, args)
	case "register":
		return runRegister(ctx, w, args)
	case "whoami":
		return runWhoami(w)
	case "logout":
		return w.store.Clear()
	case "cart":
		return runCart(ctx, w)
	case "cart-add":
		return runCartAdd(ctx, w, args)
	case "cart-update":
		return runCartUpdate(ctx, w, args)
	case "cart-remove":
		return runCartRemove(ctx, w, args)
	case "checkout":
		return runCheckout(ctx, w, args)
	case "pay":
		return runPay(ctx, w, args)
	case "confirm":
		return runConfirm(ctx, w, args)
	case "orders":
		return runOrders(ctx, w)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func runLogin(ctx context.Context, w *wiring, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	user := fs.String("user", "", "用户名或邮箱")
	pass := fs.String("pass", "", "密码")
	_ = fs.Parse(args)
	if *user == "" || *pass == "" {
		return errors.New("login requires -user and -pass")
	}

	identity, err := w.auth.Login(ctx, *user, *pass)
	if err != nil {
		if api.IsNotVerified(err) {
			fmt.Println("账号尚未验证，请先完成邮箱验证")
		}
		return err
	}
	if identity != nil && identity.Username != "" {
		fmt.Printf("已登录: %s\n", identity.Username)
	} else {
		fmt.Println("已登录")
	}
	return nil
}

func runRegister(ctx context.Context, w *wiring, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	user := fs.String("user", "", "用户名")
	email := fs.String("email", "", "邮箱")
	pass := fs.String("pass", "", "密码")
	_ = fs.Parse(args)
	if *user == "" || *email == "" || *pass == "" {
		return errors.New("register requires -user, -email and -pass")
	}

	err := w.auth.Register(ctx, repository.RegisterInput{
		Username: *user,
		Email:    *email,
		Password: *pass,
	})
	if err != nil {
		return err
	}
	fmt.Println("注册成功，请查收验证邮件后登录")
	return nil
}

func runWhoami(w *wiring) error {
	if !w.store.LoggedIn() {
		fmt.Println("未登录")
		return nil
	}
	user := w.store.User()
	if user == nil {
		fmt.Println("已登录（用户信息不可用）")
		return nil
	}
	fmt.Printf("用户: %s", user.Username)
	if user.Email != "" {
		fmt.Printf(" <%s>", user.Email)
	}
	fmt.Println()
	return nil
}

func runCart(ctx context.Context, w *wiring) error {
	view := cartflow.NewView(w.carts, w.orders, logger.Z())
	if err := view.Load(ctx); err != nil {
		return err
	}
	printCart(view)
	return nil
}

func runCartAdd(ctx context.Context, w *wiring, args []string) error {
	fs := flag.NewFlagSet("cart-add", flag.ExitOnError)
	book := fs.Uint("book", 0, "书目ID")
	qty := fs.Int("qty", 1, "数量")
	_ = fs.Parse(args)
	if *book == 0 {
		return errors.New("cart-add requires -book")
	}
	if err := w.carts.AddCartItem(ctx, *book, *qty); err != nil {
		return err
	}
	fmt.Println("已加入购物车")
	return nil
}

func runCartUpdate(ctx context.Context, w *wiring, args []string) error {
	fs := flag.NewFlagSet("cart-update", flag.ExitOnError)
	book := fs.Uint("book", 0, "书目ID")
	qty := fs.Int("qty", 0, "数量")
	_ = fs.Parse(args)
	if *book == 0 || *qty < 1 {
		return errors.New("cart-update requires -book and positive -qty")
	}

	view := cartflow.NewView(w.carts, w.orders, logger.Z())
	if err := view.Load(ctx); err != nil {
		return err
	}
	if err := view.SetQuantity(ctx, *book, *qty); err != nil {
		return err
	}
	printCart(view)
	return nil
}

func runCartRemove(ctx context.Context, w *wiring, args []string) error {
	fs := flag.NewFlagSet("cart-remove", flag.ExitOnError)
	book := fs.Uint("book", 0, "书目ID")
	_ = fs.Parse(args)
	if *book == 0 {
		return errors.New("cart-remove requires -book")
	}

	view := cartflow.NewView(w.carts, w.orders, logger.Z())
	if err := view.Load(ctx); err != nil {
		return err
	}
	if err := view.Remove(ctx, *book); err != nil {
		return err
	}
	printCart(view)
	return nil
}

func runCheckout(ctx context.Context, w *wiring, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	selectIDs := fs.String("select", "", "勾选的书目ID，逗号分隔")
	all := fs.Bool("all", false, "全选有货条目")
	_ = fs.Parse(args)

	view := cartflow.NewView(w.carts, w.orders, logger.Z())
	if err := view.Load(ctx); err != nil {
		return err
	}

	if *all {
		view.ToggleAll()
	} else {
		ids, err := parseIDList(*selectIDs)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := view.ToggleOne(id); err != nil {
				return fmt.Errorf("book %d: %w", id, err)
			}
		}
	}

	totals := view.SelectedTotals()
	result, err := view.Checkout(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("订单已创建: #%d\n", result.OrderID)
	fmt.Printf("  小计 %s  运费 %s  合计 %s VND\n", totals.Subtotal, totals.Shipping, totals.Total)
	fmt.Printf("继续支付: openlib pay -order %d -method COD\n", result.OrderID)
	return nil
}

func runPay(ctx context.Context, w *wiring, args []string) error {
	fs := flag.NewFlagSet("pay", flag.ExitOnError)
	order := fs.Uint("order", 0, "订单ID")
	method := fs.String("method", "", "支付方式")
	_ = fs.Parse(args)
	if *order == 0 {
		return errors.New("pay requires -order")
	}
	if strings.TrimSpace(*method) == "" {
		return errors.New("pay requires -method")
	}

	controller := checkout.NewController(w.payments, w.orders, logger.Z())
	if err := controller.Pay(ctx, *order, strings.ToUpper(*method)); err != nil {
		return err
	}
	fmt.Printf("支付成功，查看确认: openlib confirm -order %d\n", *order)
	return nil
}

func runConfirm(ctx context.Context, w *wiring, args []string) error {
	fs := flag.NewFlagSet("confirm", flag.ExitOnError)
	order := fs.Uint("order", 0, "订单ID")
	_ = fs.Parse(args)
	if *order == 0 {
		return errors.New("confirm requires -order")
	}

	controller := checkout.NewController(w.payments, w.orders, logger.Z())
	detail, err := controller.Confirmation(ctx, *order)
	if err != nil {
		return err
	}
	fmt.Printf("订单 #%d  状态 %s  金额 %s VND  已支付 %v\n",
		detail.OrderID, detail.Status, detail.TotalAmount, detail.IsPaid())
	for _, item := range detail.OrderItems {
		fmt.Printf("  - %s x%d  %s VND\n", item.Title, item.Quantity, item.Price.Mul(item.Quantity))
	}
	return nil
}

func runOrders(ctx context.Context, w *wiring) error {
	orders, err := w.orders.GetUserOrders(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Println("暂无订单")
		return nil
	}
	for _, order := range orders {
		fmt.Printf("#%d  %s  %s  %s VND  已支付 %v\n",
			order.OrderID, order.OrderDate, order.Status, order.TotalAmount, order.IsPaid())
	}
	return nil
}

func printCart(view *cartflow.View) {
	switch view.State() {
	case cartflow.StateEmptyCart:
		fmt.Println("购物车为空")
		return
	case cartflow.StateError:
		fmt.Printf("加载失败(%s): %s\n", view.ErrorKind(), view.ErrorMessage())
		return
	}
	for _, line := range view.Lines() {
		stock := ""
		if line.OutOfStock() {
			stock = "  [缺货]"
		}
		fmt.Printf("[%d] %s / %s  %s VND x%d%s\n",
			line.BookID, line.Title, line.Author, line.Price, line.Quantity, stock)
	}
	totals := view.Totals()
	fmt.Printf("小计 %s  运费 %s  合计 %s VND\n", totals.Subtotal, totals.Shipping, totals.Total)
}

func parseIDList(value string) ([]uint, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("checkout requires -select or -all")
	}
	parts := strings.Split(value, ",")
	ids := make([]uint, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid book id: %s", part)
		}
		ids = append(ids, uint(id))
	}
	if len(ids) == 0 {
		return nil, errors.New("checkout requires at least one book id")
	}
	return ids, nil
}
