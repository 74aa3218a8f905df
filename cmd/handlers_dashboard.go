package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleDashboard 遥测仪表板，数据来自 /admin/stats 和 /admin/logs
func handleDashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(DashboardHTML))
	}
}

// DashboardHTML 仪表板页面
const DashboardHTML = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Universe Gateway Telemetry</title>
    <script src="https://cdn.tailwindcss.com"></script>
    <link rel="stylesheet" href="https://cdnjs.cloudflare.com/ajax/libs/font-awesome/6.4.0/css/all.min.css">
    <style>
        .modal-backdrop {
            backdrop-filter: blur(4px);
            background-color: rgba(0, 0, 0, 0.5);
        }
    </style>
</head>
<body class="bg-gray-950 text-gray-100 min-h-screen">
    <!-- Login Modal -->
    <div id="loginModal" class="fixed inset-0 z-50 flex items-center justify-center modal-backdrop">
        <form id="loginForm" class="bg-gray-900 rounded-lg shadow-xl w-full max-w-md mx-4 p-6">
            <h3 class="text-xl font-bold mb-4"><i class="fas fa-shield-alt text-cyan-400"></i> Admin Token</h3>
            <input type="password" id="adminKeyInput" required
                   class="w-full px-3 py-2 mb-4 rounded bg-gray-800 border border-gray-700"
                   placeholder="ADMIN_TOKEN">
            <button type="submit" class="w-full bg-cyan-600 hover:bg-cyan-700 rounded py-2">Login</button>
            <p id="loginError" class="text-red-400 text-sm mt-3 hidden"></p>
        </form>
    </div>

    <header class="bg-gradient-to-r from-cyan-700 to-purple-700 shadow-lg">
        <div class="container mx-auto px-6 py-6 flex items-center justify-between">
            <h1 class="text-3xl font-bold"><i class="fas fa-satellite"></i> Universe Gateway</h1>
            <div class="flex gap-3">
                <button onclick="refreshDashboard()" class="bg-white/20 hover:bg-white/30 px-4 py-2 rounded"><i class="fas fa-sync-alt"></i> Refresh</button>
                <button onclick="logout()" class="bg-red-500 hover:bg-red-600 px-4 py-2 rounded"><i class="fas fa-sign-out-alt"></i> Logout</button>
            </div>
        </div>
    </header>

    <main class="container mx-auto px-6 py-8">
        <div class="grid grid-cols-1 md:grid-cols-3 gap-6 mb-8">
            <div class="bg-gray-900 rounded-lg p-6"><p class="text-gray-400">Total Requests</p><p id="totalRequests" class="text-3xl font-bold">-</p></div>
            <div class="bg-gray-900 rounded-lg p-6"><p class="text-gray-400">Fallbacks Served</p><p id="totalFallbacks" class="text-3xl font-bold">-</p></div>
            <div class="bg-gray-900 rounded-lg p-6"><p class="text-gray-400">Records Dropped</p><p id="totalDropped" class="text-3xl font-bold">-</p></div>
        </div>

        <h2 class="text-xl font-bold mb-3">Outcomes</h2>
        <table class="w-full mb-8 text-left">
            <thead class="text-gray-400"><tr><th>Kind</th><th>Outcome</th><th>Requests</th><th>Fallbacks</th><th>Dropped</th><th>Avg Latency (ms)</th></tr></thead>
            <tbody id="outcomeRows"></tbody>
        </table>

        <h2 class="text-xl font-bold mb-3">Recent Generations</h2>
        <table class="w-full text-left text-sm">
            <thead class="text-gray-400"><tr><th>Time</th><th>Kind</th><th>Outcome</th><th>Records</th><th>Dropped</th><th>Fallback</th><th>Latency</th><th>Error</th></tr></thead>
            <tbody id="logRows"></tbody>
        </table>
    </main>

    <script>
        let adminKey = localStorage.getItem('admin_key');

        async function api(path) {
            const response = await fetch(path, { headers: { 'Authorization': 'Bearer ' + adminKey } });
            if (response.status === 401 || response.status === 403) {
                const body = await response.json().catch(() => ({}));
                throw new Error((body.error && body.error.message) || 'Unauthorized');
            }
            if (!response.ok) throw new Error('HTTP ' + response.status);
            return response.json();
        }

        function escapeHtml(s) {
            return String(s == null ? '' : s).replace(/[&<>"']/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;',"'":'&#39;'}[c]));
        }

        async function refreshDashboard() {
            try {
                const stats = await api('/admin/stats');
                let fallbacks = 0, dropped = 0;
                document.getElementById('outcomeRows').innerHTML = stats.outcomes.map(o => {
                    fallbacks += o.fallback_count;
                    dropped += o.dropped_total;
                    return '<tr><td>' + escapeHtml(o.kind) + '</td><td>' + escapeHtml(o.outcome) + '</td><td>' + o.request_count +
                        '</td><td>' + o.fallback_count + '</td><td>' + o.dropped_total + '</td><td>' + o.avg_latency.toFixed(1) + '</td></tr>';
                }).join('');
                document.getElementById('totalRequests').textContent = stats.total_requests;
                document.getElementById('totalFallbacks').textContent = fallbacks;
                document.getElementById('totalDropped').textContent = dropped;

                const logs = await api('/admin/logs?limit=50');
                document.getElementById('logRows').innerHTML = logs.logs.map(l =>
                    '<tr><td>' + new Date(l.created_at).toLocaleTimeString() + '</td><td>' + escapeHtml(l.kind) + '</td><td>' + escapeHtml(l.outcome) +
                    '</td><td>' + l.records + '</td><td>' + l.dropped + '</td><td>' + (l.fallback ? 'yes' : '') + '</td><td>' + l.duration +
                    'ms</td><td class="text-red-400">' + escapeHtml(l.error_msg) + '</td></tr>').join('');

                document.getElementById('loginModal').classList.add('hidden');
            } catch (e) {
                showLogin(e.message);
            }
        }

        function showLogin(message) {
            document.getElementById('loginModal').classList.remove('hidden');
            const err = document.getElementById('loginError');
            if (message && adminKey) {
                err.textContent = message;
                err.classList.remove('hidden');
            }
        }

        function logout() {
            localStorage.removeItem('admin_key');
            adminKey = null;
            showLogin();
        }

        document.getElementById('loginForm').addEventListener('submit', e => {
            e.preventDefault();
            adminKey = document.getElementById('adminKeyInput').value;
            localStorage.setItem('admin_key', adminKey);
            refreshDashboard();
        });

        if (adminKey) {
            refreshDashboard();
        }
        setInterval(() => { if (adminKey) refreshDashboard(); }, 10000);
    </script>
</body>
</html>`
