package server

import (
	"sort"
	"strings"
	"sync"

	"github.com/valyala/fasthttp"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

// Router matches static paths through a map and parameterised paths
// ("/api/projects/{id}") through a segment trie. Static segments win over
// parameters at the same depth. A final "{name...}" segment captures the
// rest of the path, slashes included.
type Router struct {
	static map[string]map[string]*types.RouteInfo
	root   *routeNode
	mu     sync.RWMutex
}

type routeNode struct {
	children  map[string]*routeNode
	param     *routeNode
	catchAll  *routeNode
	paramName string
	routes    map[string]*types.RouteInfo
}

func newRouteNode() *routeNode {
	return &routeNode{children: make(map[string]*routeNode)}
}

func NewRouter() *Router {
	return &Router{
		static: make(map[string]map[string]*types.RouteInfo),
		root:   newRouteNode(),
	}
}

// Add registers a route. Registering the same method and path twice panics,
// as does a path that does not start with "/".
func (r *Router) Add(method, path string, handler types.FastHTTPHandler, config *types.RouteConfig) types.RouteBuilder {
	if method == "" || !strings.HasPrefix(path, "/") || handler == nil {
		panic(types.Errorf(types.ErrRouteInvalid, "%s %q", method, path))
	}

	if config == nil {
		config = &types.RouteConfig{}
	}

	path = normalizePath(path)
	info := &types.RouteInfo{
		Method:  method,
		Path:    path,
		Handler: handler,
		Config:  config,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var routes map[string]*types.RouteInfo
	if strings.Contains(path, "{") {
		routes = r.insert(path)
	} else {
		routes = r.static[path]
		if routes == nil {
			routes = make(map[string]*types.RouteInfo)
			r.static[path] = routes
		}
	}

	if _, exists := routes[method]; exists {
		panic(types.Errorf(types.ErrRouteInvalid, "duplicate route %s %s", method, path))
	}
	routes[method] = info

	return &RouteBuilder{config: config}
}

func (r *Router) GET(path string, handler types.FastHTTPHandler) types.RouteBuilder {
	return r.Add(fasthttp.MethodGet, path, handler, nil)
}

func (r *Router) POST(path string, handler types.FastHTTPHandler) types.RouteBuilder {
	return r.Add(fasthttp.MethodPost, path, handler, nil)
}

func (r *Router) DELETE(path string, handler types.FastHTTPHandler) types.RouteBuilder {
	return r.Add(fasthttp.MethodDelete, path, handler, nil)
}

// Group returns a builder that prefixes paths and shares middleware settings.
func (r *Router) Group(prefix string) *RouteGroup {
	return &RouteGroup{router: r, prefix: strings.TrimSuffix(prefix, "/")}
}

// Lookup finds the route for method and path. HEAD falls back to GET.
func (r *Router) Lookup(method, path string) (*types.RouteInfo, map[string]string, bool) {
	routes, params := r.match(normalizePath(path))
	if routes == nil {
		return nil, nil, false
	}

	info, ok := routes[method]
	if !ok && method == fasthttp.MethodHead {
		info, ok = routes[fasthttp.MethodGet]
	}
	if !ok {
		return nil, nil, false
	}

	return info, params, true
}

// Methods lists the methods registered for path, sorted. Empty means the
// path is unknown.
func (r *Router) Methods(path string) []string {
	routes, _ := r.match(normalizePath(path))

	methods := make([]string, 0, len(routes))
	for method := range routes {
		methods = append(methods, method)
	}
	sort.Strings(methods)

	return methods
}

// Routes returns every registered route, for startup logging.
func (r *Router) Routes() []*types.RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*types.RouteInfo
	for _, routes := range r.static {
		for _, info := range routes {
			all = append(all, info)
		}
	}
	collect(r.root, &all)

	sort.Slice(all, func(i, j int) bool {
		if all[i].Path == all[j].Path {
			return all[i].Method < all[j].Method
		}
		return all[i].Path < all[j].Path
	})

	return all
}

func (r *Router) match(path string) (map[string]*types.RouteInfo, map[string]string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if routes, ok := r.static[path]; ok {
		return routes, nil
	}

	params := make(map[string]string)
	node := find(r.root, splitPath(path), params)
	if node == nil || len(node.routes) == 0 {
		return nil, nil
	}

	return node.routes, params
}

func (r *Router) insert(path string) map[string]*types.RouteInfo {
	node := r.root

	segments := splitPath(path)
	for i, segment := range segments {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "...}") {
			if i != len(segments)-1 {
				panic(types.Errorf(types.ErrRouteInvalid, "catch-all must be last in %s", path))
			}
			if node.catchAll == nil {
				node.catchAll = newRouteNode()
				node.catchAll.paramName = segment[1 : len(segment)-4]
			}
			node = node.catchAll
			break
		}

		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			name := segment[1 : len(segment)-1]
			if node.param == nil {
				node.param = newRouteNode()
				node.param.paramName = name
			} else if node.param.paramName != name {
				panic(types.Errorf(types.ErrRouteInvalid, "conflicting parameter {%s} in %s", name, path))
			}
			node = node.param
			continue
		}

		child, exists := node.children[segment]
		if !exists {
			child = newRouteNode()
			node.children[segment] = child
		}
		node = child
	}

	if node.routes == nil {
		node.routes = make(map[string]*types.RouteInfo)
	}
	return node.routes
}

func find(node *routeNode, segments []string, params map[string]string) *routeNode {
	if len(segments) == 0 {
		if node.routes == nil {
			return nil
		}
		return node
	}

	segment := segments[0]

	if child, ok := node.children[segment]; ok {
		if found := find(child, segments[1:], params); found != nil {
			return found
		}
	}

	if node.param != nil && segment != "" {
		params[node.param.paramName] = segment
		if found := find(node.param, segments[1:], params); found != nil {
			return found
		}
		delete(params, node.param.paramName)
	}

	if node.catchAll != nil && node.catchAll.routes != nil {
		params[node.catchAll.paramName] = strings.Join(segments, "/")
		return node.catchAll
	}

	return nil
}

func collect(node *routeNode, all *[]*types.RouteInfo) {
	for _, info := range node.routes {
		*all = append(*all, info)
	}
	for _, child := range node.children {
		collect(child, all)
	}
	if node.param != nil {
		collect(node.param, all)
	}
	if node.catchAll != nil {
		collect(node.catchAll, all)
	}
}

func normalizePath(path string) string {
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return strings.TrimRight(path, "/")
	}
	return path
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
